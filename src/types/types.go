package types

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Place is a first-party place record owned by a user.
type Place struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	ExternalID  string    `json:"externalId,omitempty"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Address     string    `json:"address"`
	RoadAddress string    `json:"roadAddress,omitempty"`
	Phone       string    `json:"phone"`
	Location    GeoPoint  `json:"location"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GeoPoint uses the lon/lat object form Elasticsearch accepts for geo_point fields.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// OwnedPlace is a Place joined with its review aggregates.
type OwnedPlace struct {
	Place
	ReviewCount int      `json:"reviewCount"`
	AvgRating   *float64 `json:"avgRating"`
}

// ReviewStats is the review aggregate for one place. Places without
// reviews have no entry.
type ReviewStats struct {
	Count     int
	AvgRating float64
}

// NearbyPlace is a Place with its distance from the requested point.
type NearbyPlace struct {
	Place
	DistanceMeters float64 `json:"distanceMeters"`
	WalkingMinutes int     `json:"walkingMinutes"`
	DistanceLabel  string  `json:"distanceLabel"`
	WalkingLabel   string  `json:"walkingLabel"`
}

type Review struct {
	ID        string    `json:"id"`
	PlaceID   string    `json:"placeId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	Images    []string  `json:"images"`
	CreatedAt time.Time `json:"createdAt"`
}

type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PlaceID   string    `json:"placeId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchResultItem is a single provider search hit. X and Y are kept in the
// provider's string form; geo.FromProviderXY is the only place they are read.
type SearchResultItem struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Address     string      `json:"address"`
	RoadAddress string      `json:"roadAddress"`
	Phone       string      `json:"phone"`
	X           string      `json:"x"`
	Y           string      `json:"y"`
	ImageURL    string      `json:"imageUrl"`
	Menus       []MenuEntry `json:"menus"`

	ShortAddress   string   `json:"shortAddress,omitempty"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	WalkingMinutes *int     `json:"walkingMinutes,omitempty"`
	DistanceLabel  string   `json:"distanceLabel,omitempty"`
	WalkingLabel   string   `json:"walkingLabel,omitempty"`
}

// MenuEntry decodes from either {"name": ..., "price": ...} or a bare string.
type MenuEntry struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

func (m *MenuEntry) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*m = MenuEntry{Name: raw}
		return nil
	}

	var obj struct {
		Name  string          `json:"name"`
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	m.Name = obj.Name
	m.Price = priceString(obj.Price)
	return nil
}

// priceString accepts the price as either a JSON string or number.
func priceString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// PlaceDetail is a provider-side place lookup with its embedded menu list.
type PlaceDetail struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Menus []MenuEntry `json:"menus"`
}

// Identity is the authenticated caller. A nil *Identity means anonymous.
type Identity struct {
	UserID string
}

// DataStore is the first-party record store. Range methods return rows
// [offset, offset+limit) ordered by CreatedAt descending.
type DataStore interface {
	ListOwnedPlaces(ctx context.Context, ownerID string, offset, limit int) ([]Place, error)
	ReviewStats(ctx context.Context, placeIDs []string) (map[string]ReviewStats, error)
	ListReviewsByUser(ctx context.Context, userID string, offset, limit int) ([]Review, error)
	ListReviewsByPlace(ctx context.Context, placeID string, offset, limit int) ([]Review, error)
	ListFavoriteIDs(ctx context.Context, userID string) ([]string, error)
	ListFavorites(ctx context.Context, userID string, offset, limit int) ([]Favorite, error)
	GetNearbyPlaces(ctx context.Context, lat, lon float64, size int) ([]Place, error)

	SavePlaces(ctx context.Context, places []Place) error
	SaveReview(ctx context.Context, review Review) error
	SaveFavorite(ctx context.Context, favorite Favorite) error
	Close() error
}
