package db

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ternarybob/arbor"

	"placefinder/src/types"
)

// Columns of the tab-separated seed file. category and image_url are optional.
const (
	colID = iota
	colName
	colAddress
	colPhone
	colLon
	colLat
	colCategory
	colImageURL

	minColumns = colLat + 1
)

// ReadPlacesCSV parses a tab-separated seed file with a header row. Every
// place is assigned to ownerID; createdAt increases by one millisecond per row
// from base, so the last row sorts first.
func ReadPlacesCSV(r io.Reader, ownerID string, base time.Time) ([]types.Place, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read seed file")
	}

	places := make([]types.Place, 0, len(records))
	for i, record := range records {
		if i == 0 {
			continue
		}
		if len(record) < minColumns {
			return nil, errors.Newf("line %d: expected at least %d columns, got %d", i+1, minColumns, len(record))
		}

		longitude, err := strconv.ParseFloat(record[colLon], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid longitude", i+1)
		}
		latitude, err := strconv.ParseFloat(record[colLat], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: invalid latitude", i+1)
		}

		place := types.Place{
			ID:      record[colID],
			OwnerID: ownerID,
			Name:    record[colName],
			Address: record[colAddress],
			Phone:   record[colPhone],
			Location: types.GeoPoint{
				Lat: latitude,
				Lon: longitude,
			},
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond).UTC(),
		}
		if len(record) > colCategory {
			place.Category = record[colCategory]
		}
		if len(record) > colImageURL {
			place.ImageURL = record[colImageURL]
		}
		places = append(places, place)
	}
	return places, nil
}

// LoadData seeds store from the file at path.
func LoadData(ctx context.Context, store types.DataStore, path, ownerID string, logger arbor.ILogger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	places, err := ReadPlacesCSV(file, ownerID, time.Now())
	if err != nil {
		return 0, err
	}
	if err := store.SavePlaces(ctx, places); err != nil {
		return 0, err
	}

	logger.Info().Str("path", path).Int("count", len(places)).Str("owner", ownerID).Msg("Seed data loaded")
	return len(places), nil
}
