package db

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/olivere/elastic/v7"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/types"
)

// maxFetch bounds unpaginated queries (favorite id lists).
const maxFetch = 10000

// maxResultWindow is the index.max_result_window applied to every index.
// Ranges ending past it are answered as empty pages.
const maxResultWindow = 20000

const placesMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "keyword"},
      "ownerId":     {"type": "keyword"},
      "externalId":  {"type": "keyword"},
      "name":        {"type": "text"},
      "category":    {"type": "keyword"},
      "address":     {"type": "text"},
      "roadAddress": {"type": "text"},
      "phone":       {"type": "keyword"},
      "location":    {"type": "geo_point"},
      "imageUrl":    {"type": "keyword", "index": false},
      "createdAt":   {"type": "date"}
    }
  }
}`

const reviewsMapping = `{
  "mappings": {
    "properties": {
      "id":        {"type": "keyword"},
      "placeId":   {"type": "keyword"},
      "userId":    {"type": "keyword"},
      "rating":    {"type": "integer"},
      "content":   {"type": "text"},
      "images":    {"type": "keyword", "index": false},
      "createdAt": {"type": "date"}
    }
  }
}`

const favoritesMapping = `{
  "mappings": {
    "properties": {
      "id":        {"type": "keyword"},
      "userId":    {"type": "keyword"},
      "placeId":   {"type": "keyword"},
      "createdAt": {"type": "date"}
    }
  }
}`

type ElasticStore struct {
	Client *elastic.Client
	config common.ElasticConfig
	logger arbor.ILogger
}

// NewElasticStore connects without sniffing; extra options are appended.
func NewElasticStore(config common.ElasticConfig, logger arbor.ILogger, opts ...elastic.ClientOptionFunc) (*ElasticStore, error) {
	options := append([]elastic.ClientOptionFunc{
		elastic.SetURL(config.URL),
		elastic.SetSniff(false),
	}, opts...)

	client, err := elastic.NewClient(options...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create elasticsearch client")
	}
	return &ElasticStore{Client: client, config: config, logger: logger}, nil
}

// EnsureIndices creates any missing index with its mapping.
func (es *ElasticStore) EnsureIndices(ctx context.Context) error {
	indices := []struct {
		name    string
		mapping string
	}{
		{es.config.PlacesIndex, placesMapping},
		{es.config.ReviewsIndex, reviewsMapping},
		{es.config.FavoritesIndex, favoritesMapping},
	}
	for _, idx := range indices {
		if err := es.createIndexWithMapping(ctx, idx.name, idx.mapping); err != nil {
			return err
		}
	}
	return nil
}

func (es *ElasticStore) createIndexWithMapping(ctx context.Context, index, mapping string) error {
	exists, err := es.Client.IndexExists(index).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to check index %s", index)
	}
	if exists {
		es.logger.Debug().Str("index", index).Msg("Index already exists")
		return nil
	}

	created, err := es.Client.CreateIndex(index).BodyString(mapping).Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to create index %s", index)
	}
	if !created.Acknowledged {
		es.logger.Warn().Str("index", index).Msg("CreateIndex was not acknowledged")
	}

	settings := map[string]interface{}{
		"index": map[string]interface{}{
			"max_result_window": maxResultWindow,
		},
	}
	if err := es.updateIndexSettings(ctx, index, settings); err != nil {
		return err
	}

	es.logger.Info().Str("index", index).Msg("Index created")
	return nil
}

func (es *ElasticStore) updateIndexSettings(ctx context.Context, index string, settings map[string]interface{}) error {
	if _, err := es.Client.IndexPutSettings(index).BodyJson(settings).Do(ctx); err != nil {
		return errors.Wrapf(err, "failed to update settings for %s", index)
	}
	return nil
}

// newestFirst orders by creation time, with id as the tiebreaker so ranges are stable.
func (es *ElasticStore) newestFirst(svc *elastic.SearchService) *elastic.SearchService {
	return svc.Sort("createdAt", false).Sort("id", false)
}

func (es *ElasticStore) rangeQuery(ctx context.Context, index string, query elastic.Query, offset, limit int) (*elastic.SearchResult, error) {
	offset, limit, err := pageBounds(offset, limit)
	if err != nil {
		return nil, err
	}
	if offset+limit > maxResultWindow {
		es.logger.Debug().Str("index", index).Int("offset", offset).Msg("Range past result window")
		return nil, nil
	}

	result, err := es.newestFirst(es.Client.Search().Index(index).Query(query)).
		From(offset).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", index)
	}
	return result, nil
}

func (es *ElasticStore) ListOwnedPlaces(ctx context.Context, ownerID string, offset, limit int) ([]types.Place, error) {
	query := elastic.NewBoolQuery().Filter(elastic.NewTermQuery("ownerId", ownerID))
	result, err := es.rangeQuery(ctx, es.config.PlacesIndex, query, offset, limit)
	if err != nil {
		return nil, err
	}
	return decodeHits[types.Place](result, es.logger), nil
}

// ReviewStats aggregates review counts and average ratings per place in the cluster.
func (es *ElasticStore) ReviewStats(ctx context.Context, placeIDs []string) (map[string]types.ReviewStats, error) {
	if len(placeIDs) == 0 {
		return map[string]types.ReviewStats{}, nil
	}

	ids := make([]interface{}, len(placeIDs))
	for i, id := range placeIDs {
		ids[i] = id
	}

	byPlace := elastic.NewTermsAggregation().
		Field("placeId").
		Size(len(placeIDs)).
		SubAggregation("avg_rating", elastic.NewAvgAggregation().Field("rating"))

	result, err := es.Client.Search().
		Index(es.config.ReviewsIndex).
		Query(elastic.NewBoolQuery().Filter(elastic.NewTermsQuery("placeId", ids...))).
		Size(0).
		Aggregation("by_place", byPlace).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to aggregate %s", es.config.ReviewsIndex)
	}

	stats := make(map[string]types.ReviewStats, len(placeIDs))
	terms, ok := result.Aggregations.Terms("by_place")
	if !ok {
		return stats, nil
	}
	for _, bucket := range terms.Buckets {
		id, ok := bucket.Key.(string)
		if !ok || bucket.DocCount == 0 {
			continue
		}
		entry := types.ReviewStats{Count: int(bucket.DocCount)}
		if avg, ok := bucket.Avg("avg_rating"); ok && avg.Value != nil {
			entry.AvgRating = *avg.Value
		}
		stats[id] = entry
	}
	return stats, nil
}

func (es *ElasticStore) ListReviewsByUser(ctx context.Context, userID string, offset, limit int) ([]types.Review, error) {
	query := elastic.NewBoolQuery().Filter(elastic.NewTermQuery("userId", userID))
	result, err := es.rangeQuery(ctx, es.config.ReviewsIndex, query, offset, limit)
	if err != nil {
		return nil, err
	}
	return decodeHits[types.Review](result, es.logger), nil
}

func (es *ElasticStore) ListReviewsByPlace(ctx context.Context, placeID string, offset, limit int) ([]types.Review, error) {
	query := elastic.NewBoolQuery().Filter(elastic.NewTermQuery("placeId", placeID))
	result, err := es.rangeQuery(ctx, es.config.ReviewsIndex, query, offset, limit)
	if err != nil {
		return nil, err
	}
	return decodeHits[types.Review](result, es.logger), nil
}

func (es *ElasticStore) ListFavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	query := elastic.NewBoolQuery().Filter(elastic.NewTermQuery("userId", userID))
	result, err := es.newestFirst(es.Client.Search().Index(es.config.FavoritesIndex).Query(query)).
		Size(maxFetch).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", es.config.FavoritesIndex)
	}

	favorites := decodeHits[types.Favorite](result, es.logger)
	ids := make([]string, len(favorites))
	for i, f := range favorites {
		ids[i] = f.PlaceID
	}
	return ids, nil
}

func (es *ElasticStore) ListFavorites(ctx context.Context, userID string, offset, limit int) ([]types.Favorite, error) {
	query := elastic.NewBoolQuery().Filter(elastic.NewTermQuery("userId", userID))
	result, err := es.rangeQuery(ctx, es.config.FavoritesIndex, query, offset, limit)
	if err != nil {
		return nil, err
	}
	return decodeHits[types.Favorite](result, es.logger), nil
}

func (es *ElasticStore) GetNearbyPlaces(ctx context.Context, lat, lon float64, size int) ([]types.Place, error) {
	result, err := es.Client.Search().
		Index(es.config.PlacesIndex).
		Query(elastic.NewMatchAllQuery()).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(lat, lon).
			Asc().
			Unit("km").
			DistanceType("arc").
			IgnoreUnmapped(true)).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", es.config.PlacesIndex)
	}
	return decodeHits[types.Place](result, es.logger), nil
}

func (es *ElasticStore) SavePlaces(ctx context.Context, places []types.Place) error {
	if len(places) == 0 {
		return nil
	}

	bulkRequest := es.Client.Bulk().Refresh("wait_for")
	for _, place := range places {
		req := elastic.NewBulkIndexRequest().Index(es.config.PlacesIndex).Id(place.ID).Doc(place)
		bulkRequest = bulkRequest.Add(req)
	}

	bulkResponse, err := bulkRequest.Do(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to execute bulk request")
	}

	failed := 0
	for _, item := range bulkResponse.Items {
		for _, op := range item {
			if op.Error != nil {
				failed++
				es.logger.Warn().Str("id", op.Id).Str("reason", op.Error.Reason).Msg("Failed to index place")
			}
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d places failed to index", failed, len(places))
	}
	return nil
}

func (es *ElasticStore) SaveReview(ctx context.Context, review types.Review) error {
	return es.index(ctx, es.config.ReviewsIndex, review.ID, review)
}

func (es *ElasticStore) SaveFavorite(ctx context.Context, favorite types.Favorite) error {
	return es.index(ctx, es.config.FavoritesIndex, favorite.ID, favorite)
}

func (es *ElasticStore) index(ctx context.Context, index, id string, doc interface{}) error {
	_, err := es.Client.Index().Index(index).Id(id).BodyJson(doc).Refresh("wait_for").Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to index into %s", index)
	}
	return nil
}

func (es *ElasticStore) Close() error {
	es.Client.Stop()
	return nil
}

// decodeHits unmarshals each hit's source, skipping any that do not decode.
func decodeHits[T any](result *elastic.SearchResult, logger arbor.ILogger) []T {
	if result == nil || result.Hits == nil {
		return nil
	}

	out := make([]T, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var doc T
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			logger.Warn().Err(err).Str("id", hit.Id).Msg("Error unmarshalling hit source")
			continue
		}
		out = append(out, doc)
	}
	return out
}

var _ types.DataStore = (*ElasticStore)(nil)
