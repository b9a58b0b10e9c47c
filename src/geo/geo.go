// Package geo converts coordinates into distances, walking estimates, and
// the labels shown next to a listing.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	earthRadiusMeters = 6371000.0

	// walkingSpeed is an average walking pace in meters per minute.
	walkingSpeed = 80.0

	// walkingCeiling is the duration at which labels stop showing exact minutes.
	walkingCeiling = 30

	// providerScale is the fixed-point factor of the provider's integer x/y form.
	providerScale = 1e7
)

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMeters returns the haversine great-circle distance between two points.
func DistanceMeters(from, to Coordinates) float64 {
	lat1 := toRadians(from.Lat)
	lat2 := toRadians(to.Lat)
	dLat := toRadians(to.Lat - from.Lat)
	dLng := toRadians(to.Lng - from.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// WalkingMinutes estimates walking time in whole minutes.
func WalkingMinutes(meters float64) int {
	return int(math.Round(meters / walkingSpeed))
}

// FormatDistance renders meters as "850m" below one kilometer and "1.2km" above.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.1fkm", meters/1000)
	}
	return groupThousands(int64(math.Round(meters))) + "m"
}

// FormatWalkingDuration buckets a walking estimate for display. Anything at or
// over the ceiling collapses into a single label.
func FormatWalkingDuration(minutes int) string {
	if minutes == 0 {
		return "바로 앞"
	}
	if minutes >= walkingCeiling {
		return fmt.Sprintf("%d분 이상", walkingCeiling)
	}
	return FormatMinutes(minutes)
}

// FormatMinutes renders a duration as minutes, hours, or hours and minutes.
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d분", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return fmt.Sprintf("%d시간", hours)
	}
	return fmt.Sprintf("%d시간 %d분", hours, rest)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}

// FromProviderXY converts the search provider's x/y strings into coordinates.
// x is longitude and y is latitude. Values larger than 1000 in magnitude are
// the provider's scaled-integer form (degrees * 10^7); anything else is read as
// decimal degrees. ok is false when either value does not parse.
func FromProviderXY(x, y string) (Coordinates, bool) {
	lng, okX := parseProviderDegree(x)
	lat, okY := parseProviderDegree(y)
	if !okX || !okY {
		return Coordinates{}, false
	}
	return Coordinates{Lat: lat, Lng: lng}, true
}

func parseProviderDegree(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if math.Abs(v) > 1000 {
		v /= providerScale
	}
	return v, true
}

// ParseCoordinates reads a lng/lat pair of decimal-degree strings.
func ParseCoordinates(lng, lat string) (Coordinates, bool) {
	x, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return Coordinates{}, false
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: y, Lng: x}, true
}
