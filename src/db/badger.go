package db

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"placefinder/src/common"
	"placefinder/src/geo"
	"placefinder/src/types"
)

// BadgerStore keeps places, reviews, and favorites in an embedded Badger
// database. It answers the same queries as ElasticStore.
type BadgerStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

func NewBadgerStore(config common.BadgerConfig, logger arbor.ILogger) (*BadgerStore, error) {
	if config.Path == "" {
		return nil, common.Configuration("storage.badger.path is required for the badger backend")
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	logger.Debug().Str("path", config.Path).Msg("Opening Badger database")

	options := badgerhold.DefaultOptions
	options.Dir = config.Path
	options.ValueDir = config.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open badger database at %s", config.Path)
	}
	return &BadgerStore{store: store, logger: logger}, nil
}

// newestFirst is the badgerhold form of the createdAt-desc, id-desc ordering.
func newestFirst(query *badgerhold.Query, offset, limit int) *badgerhold.Query {
	return query.SortBy("CreatedAt", "ID").Reverse().Skip(offset).Limit(limit)
}

func (s *BadgerStore) ListOwnedPlaces(ctx context.Context, ownerID string, offset, limit int) ([]types.Place, error) {
	offset, limit, err := pageBounds(offset, limit)
	if err != nil {
		return nil, err
	}

	var places []types.Place
	if err := s.store.Find(&places, newestFirst(badgerhold.Where("OwnerID").Eq(ownerID), offset, limit)); err != nil {
		return nil, errors.Wrap(err, "failed to list owned places")
	}
	return places, nil
}

func (s *BadgerStore) ReviewStats(ctx context.Context, placeIDs []string) (map[string]types.ReviewStats, error) {
	stats := make(map[string]types.ReviewStats, len(placeIDs))
	if len(placeIDs) == 0 {
		return stats, nil
	}

	sums := make(map[string]int, len(placeIDs))
	err := s.store.ForEach(badgerhold.Where("PlaceID").In(badgerhold.Slice(placeIDs)...), func(r *types.Review) error {
		entry := stats[r.PlaceID]
		entry.Count++
		sums[r.PlaceID] += r.Rating
		stats[r.PlaceID] = entry
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate reviews for places")
	}

	for id, entry := range stats {
		entry.AvgRating = float64(sums[id]) / float64(entry.Count)
		stats[id] = entry
	}
	return stats, nil
}

func (s *BadgerStore) ListReviewsByUser(ctx context.Context, userID string, offset, limit int) ([]types.Review, error) {
	return s.listReviews(badgerhold.Where("UserID").Eq(userID), offset, limit)
}

func (s *BadgerStore) ListReviewsByPlace(ctx context.Context, placeID string, offset, limit int) ([]types.Review, error) {
	return s.listReviews(badgerhold.Where("PlaceID").Eq(placeID), offset, limit)
}

func (s *BadgerStore) listReviews(query *badgerhold.Query, offset, limit int) ([]types.Review, error) {
	offset, limit, err := pageBounds(offset, limit)
	if err != nil {
		return nil, err
	}

	var reviews []types.Review
	if err := s.store.Find(&reviews, newestFirst(query, offset, limit)); err != nil {
		return nil, errors.Wrap(err, "failed to list reviews")
	}
	return reviews, nil
}

func (s *BadgerStore) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	var favorites []types.Favorite
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt", "ID").Reverse()
	if err := s.store.Find(&favorites, query); err != nil {
		return nil, errors.Wrap(err, "failed to list favorites")
	}

	ids := make([]string, len(favorites))
	for i, f := range favorites {
		ids[i] = f.PlaceID
	}
	return ids, nil
}

func (s *BadgerStore) ListFavorites(ctx context.Context, userID string, offset, limit int) ([]types.Favorite, error) {
	offset, limit, err := pageBounds(offset, limit)
	if err != nil {
		return nil, err
	}

	var favorites []types.Favorite
	if err := s.store.Find(&favorites, newestFirst(badgerhold.Where("UserID").Eq(userID), offset, limit)); err != nil {
		return nil, errors.Wrap(err, "failed to list favorites")
	}
	return favorites, nil
}

// GetNearbyPlaces scans every place and orders by haversine distance.
func (s *BadgerStore) GetNearbyPlaces(ctx context.Context, lat, lon float64, size int) ([]types.Place, error) {
	var places []types.Place
	if err := s.store.Find(&places, nil); err != nil {
		return nil, errors.Wrap(err, "failed to load places")
	}

	origin := geo.Coordinates{Lat: lat, Lng: lon}
	distance := func(p types.Place) float64 {
		return geo.DistanceMeters(origin, geo.Coordinates{Lat: p.Location.Lat, Lng: p.Location.Lon})
	}
	sort.SliceStable(places, func(i, j int) bool {
		return distance(places[i]) < distance(places[j])
	})

	if size > 0 && len(places) > size {
		places = places[:size]
	}
	return places, nil
}

func (s *BadgerStore) SavePlaces(ctx context.Context, places []types.Place) error {
	for _, place := range places {
		if err := s.store.Upsert(place.ID, place); err != nil {
			return errors.Wrapf(err, "failed to save place %s", place.ID)
		}
	}
	s.logger.Debug().Int("count", len(places)).Msg("Places saved")
	return nil
}

func (s *BadgerStore) SaveReview(ctx context.Context, review types.Review) error {
	if err := s.store.Upsert(review.ID, review); err != nil {
		return errors.Wrapf(err, "failed to save review %s", review.ID)
	}
	return nil
}

func (s *BadgerStore) SaveFavorite(ctx context.Context, favorite types.Favorite) error {
	if err := s.store.Upsert(favorite.ID, favorite); err != nil {
		return errors.Wrapf(err, "failed to save favorite %s", favorite.ID)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

var _ types.DataStore = (*BadgerStore)(nil)
