// Package listing implements the listing operations behind the HTTP API.
// Every operation takes its request values and the caller's identity
// explicitly; a nil identity is an anonymous caller.
package listing

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/geo"
	"placefinder/src/imageurl"
	"placefinder/src/pagination"
	"placefinder/src/searchcache"
	"placefinder/src/types"
)

const (
	DefaultNearbySize = 3
	MaxNearbySize     = 20
)

// Searcher is the cached place search.
type Searcher interface {
	Search(ctx context.Context, req searchcache.Request) []types.SearchResultItem
}

// DetailProvider looks up a single provider place.
type DetailProvider interface {
	PlaceDetail(ctx context.Context, id string) (*types.PlaceDetail, error)
}

type Service struct {
	store       types.DataStore
	searcher    Searcher
	details     DetailProvider
	reviewWidth int
	validate    *validator.Validate
	now         func() time.Time
	newID       func() string
	logger      arbor.ILogger
}

func NewService(store types.DataStore, searcher Searcher, details DetailProvider, reviewWidth int, logger arbor.ILogger) *Service {
	return &Service{
		store:       store,
		searcher:    searcher,
		details:     details,
		reviewWidth: reviewWidth,
		validate:    validator.New(),
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger,
	}
}

// SearchRequest is a provider search as received from the client.
type SearchRequest struct {
	Query     string
	Display   int
	Start     int
	OriginLng string
	OriginLat string
}

// Search returns the provider's results. It never reports upstream failures;
// those come back as an empty slice.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]types.SearchResultItem, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, common.ClientInput("query is required")
	}

	return s.searcher.Search(ctx, searchcache.Request{
		Query:     query,
		Display:   searchcache.ClampDisplay(req.Display),
		Start:     searchcache.ClampStart(req.Start),
		OriginLng: req.OriginLng,
		OriginLat: req.OriginLat,
	}), nil
}

// OwnedPlaces pages the caller's places with their review count and mean rating.
func (s *Service) OwnedPlaces(ctx context.Context, identity *types.Identity, params pagination.Params) (pagination.Page[types.OwnedPlace], error) {
	if identity == nil {
		return pagination.Page[types.OwnedPlace]{}, common.AuthRequired()
	}

	page, err := pagination.Fetch(ctx, params, func(ctx context.Context, offset, limit int) ([]types.Place, error) {
		return s.store.ListOwnedPlaces(ctx, identity.UserID, offset, limit)
	})
	if err != nil {
		return pagination.Page[types.OwnedPlace]{}, common.StoreQuery(err)
	}

	ids := make([]string, len(page.Items))
	for i, p := range page.Items {
		ids[i] = p.ID
	}

	stats := map[string]types.ReviewStats{}
	if len(ids) > 0 {
		stats, err = s.store.ReviewStats(ctx, ids)
		if err != nil {
			return pagination.Page[types.OwnedPlace]{}, common.StoreQuery(err)
		}
	}

	items := make([]types.OwnedPlace, len(page.Items))
	for i, p := range page.Items {
		p.ImageURL = imageurl.OptimizeSearchImage(p.ImageURL).URL
		owned := types.OwnedPlace{Place: p}
		if st, ok := stats[p.ID]; ok && st.Count > 0 {
			avg := st.AvgRating
			owned.ReviewCount = st.Count
			owned.AvgRating = &avg
		}
		items[i] = owned
	}

	return pagination.Page[types.OwnedPlace]{Items: items, NextCursor: page.NextCursor}, nil
}

// ReviewsByUser pages the caller's reviews, newest first.
func (s *Service) ReviewsByUser(ctx context.Context, identity *types.Identity, params pagination.Params) (pagination.Page[types.Review], error) {
	if identity == nil {
		return pagination.Page[types.Review]{}, common.AuthRequired()
	}
	return s.reviews(ctx, params, func(ctx context.Context, offset, limit int) ([]types.Review, error) {
		return s.store.ListReviewsByUser(ctx, identity.UserID, offset, limit)
	})
}

// ReviewsByPlace pages a place's reviews. It is public.
func (s *Service) ReviewsByPlace(ctx context.Context, placeID string, params pagination.Params) (pagination.Page[types.Review], error) {
	if placeID == "" {
		return pagination.Page[types.Review]{}, common.ClientInput("place id is required")
	}
	return s.reviews(ctx, params, func(ctx context.Context, offset, limit int) ([]types.Review, error) {
		return s.store.ListReviewsByPlace(ctx, placeID, offset, limit)
	})
}

func (s *Service) reviews(ctx context.Context, params pagination.Params, fn pagination.RangeFunc[types.Review]) (pagination.Page[types.Review], error) {
	page, err := pagination.Fetch(ctx, params, fn)
	if err != nil {
		return pagination.Page[types.Review]{}, common.StoreQuery(err)
	}
	for i := range page.Items {
		page.Items[i] = s.renderReview(page.Items[i])
	}
	return page, nil
}

func (s *Service) renderReview(r types.Review) types.Review {
	r.Images = imageurl.OptimizeStoredImages(r.Images, s.reviewWidth)
	return r
}

// MenusByPlace pages the menu list of a provider place. A failed lookup is
// reported as an empty page.
func (s *Service) MenusByPlace(ctx context.Context, placeID string, params pagination.Params) (pagination.Page[types.MenuEntry], error) {
	if placeID == "" {
		return pagination.Page[types.MenuEntry]{}, common.ClientInput("place id is required")
	}

	detail, err := s.details.PlaceDetail(ctx, placeID)
	if err != nil {
		s.logger.Warn().Err(err).Str("place_id", placeID).Msg("Place detail lookup failed, returning empty menus")
		return pagination.Empty[types.MenuEntry](), nil
	}
	return pagination.Slice(detail.Menus, params), nil
}

// Favorites returns every place id the caller has favorited. Anonymous
// callers get an empty list.
func (s *Service) Favorites(ctx context.Context, identity *types.Identity) (pagination.Page[string], error) {
	if identity == nil {
		return pagination.Empty[string](), nil
	}

	ids, err := s.store.ListFavoriteIDs(ctx, identity.UserID)
	if err != nil {
		return pagination.Page[string]{}, common.StoreQuery(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return pagination.Page[string]{Items: ids}, nil
}

// FavoritePlaces pages the caller's favorite records.
func (s *Service) FavoritePlaces(ctx context.Context, identity *types.Identity, params pagination.Params) (pagination.Page[types.Favorite], error) {
	if identity == nil {
		return pagination.Page[types.Favorite]{}, common.AuthRequired()
	}

	page, err := pagination.Fetch(ctx, params, func(ctx context.Context, offset, limit int) ([]types.Favorite, error) {
		return s.store.ListFavorites(ctx, identity.UserID, offset, limit)
	})
	if err != nil {
		return pagination.Page[types.Favorite]{}, common.StoreQuery(err)
	}
	return page, nil
}

type FavoriteInput struct {
	PlaceID string `json:"placeId" validate:"required,max=128"`
}

// AddFavorite records placeID as a favorite of the caller.
func (s *Service) AddFavorite(ctx context.Context, identity *types.Identity, input FavoriteInput) (*types.Favorite, error) {
	if identity == nil {
		return nil, common.AuthRequired()
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, common.ClientInput("invalid favorite: %v", err)
	}

	favorite := types.Favorite{
		ID:        identity.UserID + ":" + input.PlaceID,
		UserID:    identity.UserID,
		PlaceID:   input.PlaceID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveFavorite(ctx, favorite); err != nil {
		return nil, common.StoreQuery(err)
	}
	return &favorite, nil
}

// Nearby returns the stored places closest to at with distance and walking labels.
func (s *Service) Nearby(ctx context.Context, at geo.Coordinates, size int) ([]types.NearbyPlace, error) {
	if size <= 0 {
		size = DefaultNearbySize
	}
	if size > MaxNearbySize {
		size = MaxNearbySize
	}

	places, err := s.store.GetNearbyPlaces(ctx, at.Lat, at.Lng, size)
	if err != nil {
		return nil, common.StoreQuery(err)
	}

	out := make([]types.NearbyPlace, len(places))
	for i, p := range places {
		p.ImageURL = imageurl.OptimizeSearchImage(p.ImageURL).URL
		meters := geo.DistanceMeters(at, geo.Coordinates{Lat: p.Location.Lat, Lng: p.Location.Lon})
		minutes := geo.WalkingMinutes(meters)
		out[i] = types.NearbyPlace{
			Place:          p,
			DistanceMeters: meters,
			WalkingMinutes: minutes,
			DistanceLabel:  geo.FormatDistance(meters),
			WalkingLabel:   geo.FormatWalkingDuration(minutes),
		}
	}
	return out, nil
}

type ReviewInput struct {
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Content string   `json:"content" validate:"max=2000"`
	Images  []string `json:"images" validate:"max=10,dive,url"`
}

// CreateReview stores a review by the caller. Image URLs are stored in their
// raw object form and returned rendered.
func (s *Service) CreateReview(ctx context.Context, identity *types.Identity, placeID string, input ReviewInput) (*types.Review, error) {
	if identity == nil {
		return nil, common.AuthRequired()
	}
	if placeID == "" {
		return nil, common.ClientInput("place id is required")
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, common.ClientInput("invalid review: %v", err)
	}

	review := types.Review{
		ID:        s.newID(),
		PlaceID:   placeID,
		UserID:    identity.UserID,
		Rating:    input.Rating,
		Content:   strings.TrimSpace(input.Content),
		Images:    imageurl.RevertStoredImages(input.Images),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveReview(ctx, review); err != nil {
		return nil, common.StoreQuery(err)
	}

	s.logger.Info().Str("review_id", review.ID).Str("place_id", placeID).Int("rating", review.Rating).Msg("Review created")

	rendered := s.renderReview(review)
	return &rendered, nil
}
