package db

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/types"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")}, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBadgerStore_OwnedPlacesPaging(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	var places []types.Place
	for i := 0; i < 12; i++ {
		places = append(places, types.Place{
			ID:        fmt.Sprintf("p%02d", i),
			OwnerID:   "owner",
			Name:      fmt.Sprintf("place %d", i),
			CreatedAt: epoch.Add(time.Duration(i) * time.Minute),
		})
	}
	places = append(places, types.Place{ID: "other", OwnerID: "someone-else", CreatedAt: epoch.Add(time.Hour)})
	require.NoError(t, store.SavePlaces(ctx, places))

	first, err := store.ListOwnedPlaces(ctx, "owner", 0, 5)
	require.NoError(t, err)
	require.Len(t, first, 5)
	assert.Equal(t, "p11", first[0].ID)
	assert.Equal(t, "p07", first[4].ID)

	second, err := store.ListOwnedPlaces(ctx, "owner", 5, 5)
	require.NoError(t, err)
	require.Len(t, second, 5)
	assert.Equal(t, "p06", second[0].ID)

	last, err := store.ListOwnedPlaces(ctx, "owner", 10, 5)
	require.NoError(t, err)
	assert.Len(t, last, 2)

	past, err := store.ListOwnedPlaces(ctx, "owner", 15, 5)
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestBadgerStore_Reviews(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	reviews := []types.Review{
		{ID: "r1", PlaceID: "a", UserID: "u1", Rating: 5, CreatedAt: epoch},
		{ID: "r2", PlaceID: "a", UserID: "u2", Rating: 3, CreatedAt: epoch.Add(time.Minute)},
		{ID: "r3", PlaceID: "b", UserID: "u1", Rating: 4, CreatedAt: epoch.Add(2 * time.Minute)},
		{ID: "r4", PlaceID: "c", UserID: "u1", Rating: 1, CreatedAt: epoch.Add(3 * time.Minute)},
	}
	for _, r := range reviews {
		require.NoError(t, store.SaveReview(ctx, r))
	}

	stats, err := store.ReviewStats(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 2, stats["a"].Count)
	assert.InDelta(t, 4.0, stats["a"].AvgRating, 1e-9)
	assert.Equal(t, 1, stats["b"].Count)

	none, err := store.ReviewStats(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	byUser, err := store.ListReviewsByUser(ctx, "u1", 0, 10)
	require.NoError(t, err)
	require.Len(t, byUser, 3)
	assert.Equal(t, []string{"r4", "r3", "r1"}, []string{byUser[0].ID, byUser[1].ID, byUser[2].ID})

	byPlace, err := store.ListReviewsByPlace(ctx, "a", 1, 10)
	require.NoError(t, err)
	require.Len(t, byPlace, 1)
	assert.Equal(t, "r1", byPlace[0].ID)
}

func TestBadgerStore_Favorites(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveFavorite(ctx, types.Favorite{ID: "f1", UserID: "u1", PlaceID: "p1", CreatedAt: epoch}))
	require.NoError(t, store.SaveFavorite(ctx, types.Favorite{ID: "f2", UserID: "u1", PlaceID: "p2", CreatedAt: epoch.Add(time.Second)}))
	require.NoError(t, store.SaveFavorite(ctx, types.Favorite{ID: "f3", UserID: "u2", PlaceID: "p3", CreatedAt: epoch}))

	ids, err := store.ListFavoriteIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, ids)

	page, err := store.ListFavorites(ctx, "u1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "p1", page[0].PlaceID)

	none, err := store.ListFavoriteIDs(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBadgerStore_GetNearbyPlaces(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePlaces(ctx, []types.Place{
		{ID: "far", Location: types.GeoPoint{Lat: 35.1796, Lon: 129.0756}},
		{ID: "near", Location: types.GeoPoint{Lat: 37.3596, Lon: 127.1054}},
		{ID: "mid", Location: types.GeoPoint{Lat: 37.5665, Lon: 126.9780}},
	}))

	places, err := store.GetNearbyPlaces(ctx, 37.3595, 127.1052, 2)
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "near", places[0].ID)
	assert.Equal(t, "mid", places[1].ID)
}

func TestNewStore_Backends(t *testing.T) {
	store, err := NewStore(context.Background(), common.StorageConfig{
		Backend: "badger",
		Badger:  common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")},
	}, arbor.NewLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewStore(context.Background(), common.StorageConfig{Backend: "sqlite"}, arbor.NewLogger())
	require.Error(t, err)
	assert.Equal(t, 500, common.StatusCode(err))
	assert.True(t, strings.Contains(err.Error(), "sqlite"))
}

func TestReadPlacesCSV(t *testing.T) {
	data := "id\tname\taddress\tphone\tlon\tlat\tcategory\n" +
		"1\tSushi Bar\t서울 강남구 1\t(02) 000\t127.03\t37.49\t일식\n" +
		"2\tNoodle\t서울 종로구 2\t(02) 111\t126.98\t37.57\n"

	places, err := ReadPlacesCSV(strings.NewReader(data), "owner", epoch)
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, "owner", places[0].OwnerID)
	assert.Equal(t, 37.49, places[0].Location.Lat)
	assert.Equal(t, 127.03, places[0].Location.Lon)
	assert.Equal(t, "일식", places[0].Category)
	assert.Empty(t, places[1].Category)
	assert.True(t, places[1].CreatedAt.After(places[0].CreatedAt))
}

func TestReadPlacesCSV_Invalid(t *testing.T) {
	_, err := ReadPlacesCSV(strings.NewReader("h\n1\tname\n"), "owner", epoch)
	assert.Error(t, err)

	_, err = ReadPlacesCSV(strings.NewReader("h\n1\tn\ta\tp\tnope\t37.0\n"), "owner", epoch)
	assert.Error(t, err)
}
