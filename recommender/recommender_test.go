package recommender_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/amonks/recommender/data"
	"github.com/amonks/recommender/recommender"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog implements recommender.Catalog from fixed maps, counting
// upstream calls.
type fakeCatalog struct {
	mu      sync.Mutex
	artists map[string][]data.Artist
	tracks  map[string][]data.Track

	searchCalls int
	trackCalls  int
}

func (cat *fakeCatalog) SearchArtists(ctx context.Context, name string) ([]data.Artist, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	cat.searchCalls++
	return cat.artists[name], nil
}

func (cat *fakeCatalog) ArtistTopTracks(ctx context.Context, artistSpotifyID string) ([]data.Track, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	cat.trackCalls++
	return cat.tracks[artistSpotifyID], nil
}

func mkArtist(id, name string) data.Artist {
	return data.Artist{SpotifyID: id, Name: name}
}

func mkTracks(artistID string, n int) []data.Track {
	tracks := make([]data.Track, n)
	for i := range tracks {
		tracks[i] = data.Track{
			SpotifyID: fmt.Sprintf("%s-track-%d", artistID, i),
			Name:      fmt.Sprintf("%s song %d", artistID, i),
		}
	}
	return tracks
}

func twoArtistCatalog() *fakeCatalog {
	return &fakeCatalog{
		artists: map[string][]data.Artist{
			"A": {mkArtist("id-a", "A")},
			"B": {mkArtist("id-b", "B")},
		},
		tracks: map[string][]data.Track{
			"id-a": mkTracks("id-a", 10),
			"id-b": mkTracks("id-b", 10),
		},
	}
}

func TestRecommendSamplesWithoutReplacement(t *testing.T) {
	rec := recommender.New(twoArtistCatalog())

	result, err := rec.Recommend(context.Background(), recommender.Request{
		Artists: []string{"A", "B"},
		Tracks:  12,
	})
	require.NoError(t, err)
	require.Len(t, result.Tracks, 12)

	seen := map[string]bool{}
	for _, track := range result.Tracks {
		key := track.ArtistSpotifyID + "/" + track.SpotifyID
		assert.False(t, seen[key], "track %s drawn twice", key)
		seen[key] = true
	}
}

func TestRecommendWholePool(t *testing.T) {
	rec := recommender.New(twoArtistCatalog())

	result, err := rec.Recommend(context.Background(), recommender.Request{
		Artists: []string{"A", "B"},
		Tracks:  20,
	})
	require.NoError(t, err)
	require.Len(t, result.Tracks, 20)

	seen := map[string]bool{}
	for _, track := range result.Tracks {
		seen[track.ArtistSpotifyID+"/"+track.SpotifyID] = true
	}
	assert.Len(t, seen, 20)
}

func TestRecommendCapacityExceeded(t *testing.T) {
	cat := twoArtistCatalog()
	rec := recommender.New(cat)

	_, err := rec.Recommend(context.Background(), recommender.Request{
		Artists: []string{"A", "B"},
		Tracks:  25,
	})
	assert.ErrorIs(t, err, recommender.ErrCapacityExceeded)
	assert.Zero(t, cat.searchCalls, "capacity check must precede catalog calls")
}

func TestRecommendArtistNotFound(t *testing.T) {
	rec := recommender.New(&fakeCatalog{
		artists: map[string][]data.Artist{},
		tracks:  map[string][]data.Track{},
	})

	_, err := rec.Recommend(context.Background(), recommender.Request{
		Artists: []string{"Z"},
		Tracks:  1,
	})
	assert.ErrorIs(t, err, recommender.ErrArtistNotFound)
	assert.Contains(t, err.Error(), "Z")
}

func TestRecommendInsufficientTracks(t *testing.T) {
	rec := recommender.New(&fakeCatalog{
		artists: map[string][]data.Artist{"A": {mkArtist("id-a", "A")}},
		tracks:  map[string][]data.Track{"id-a": mkTracks("id-a", 3)},
	})

	_, err := rec.Recommend(context.Background(), recommender.Request{
		Artists: []string{"A"},
		Tracks:  5,
	})
	assert.ErrorIs(t, err, recommender.ErrInsufficientTracks)
}

func TestRecommendValidatesInput(t *testing.T) {
	cat := twoArtistCatalog()
	rec := recommender.New(cat)

	_, err := rec.Recommend(context.Background(), recommender.Request{
		Artists: nil,
		Tracks:  5,
	})
	assert.ErrorIs(t, err, recommender.ErrInvalidRequest)

	_, err = rec.Recommend(context.Background(), recommender.Request{
		Artists: []string{"A"},
		Tracks:  0,
	})
	assert.ErrorIs(t, err, recommender.ErrInvalidRequest)

	_, err = rec.Recommend(context.Background(), recommender.Request{
		Artists: []string{"A"},
		Tracks:  -2,
	})
	assert.ErrorIs(t, err, recommender.ErrInvalidRequest)

	assert.Zero(t, cat.searchCalls, "validation must precede catalog calls")
}

func TestResolveFirstMatchWins(t *testing.T) {
	rec := recommender.New(&fakeCatalog{
		artists: map[string][]data.Artist{
			"A": {mkArtist("id-1", "A"), mkArtist("id-2", "A tribute band")},
		},
	})

	artist, err := rec.Resolve(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "id-1", artist.SpotifyID)
}

func TestTopTracksLimit(t *testing.T) {
	cat := &fakeCatalog{
		tracks: map[string][]data.Track{"id-a": mkTracks("id-a", 10)},
	}
	rec := recommender.New(cat)
	artist := mkArtist("id-a", "A")

	_, err := rec.TopTracks(context.Background(), artist, 11)
	assert.ErrorIs(t, err, recommender.ErrInvalidLimit)
	assert.Zero(t, cat.trackCalls, "limit check must precede the catalog call")

	_, err = rec.TopTracks(context.Background(), artist, -1)
	assert.ErrorIs(t, err, recommender.ErrInvalidLimit)

	tracks, err := rec.TopTracks(context.Background(), artist, 3)
	require.NoError(t, err)
	assert.Len(t, tracks, 3)

	tracks, err = rec.TopTracks(context.Background(), artist, 10)
	require.NoError(t, err)
	assert.Len(t, tracks, 10)
}

func TestTopTracksAttribution(t *testing.T) {
	rec := recommender.New(&fakeCatalog{
		tracks: map[string][]data.Track{"id-a": mkTracks("id-a", 2)},
	})

	tracks, err := rec.TopTracks(context.Background(), mkArtist("id-a", "A"), 10)
	require.NoError(t, err)
	for _, track := range tracks {
		assert.Equal(t, "id-a", track.ArtistSpotifyID)
		assert.Equal(t, "A", track.ArtistName)
	}
}

func TestAggregateCollapsesDuplicates(t *testing.T) {
	cat := twoArtistCatalog()
	rec := recommender.New(cat)

	byArtist, err := rec.Aggregate(context.Background(), []string{"A", "A", "B"})
	require.NoError(t, err)
	require.Len(t, byArtist, 2)
	assert.Len(t, byArtist["A"], 10)
	assert.Len(t, byArtist["B"], 10)
	assert.Equal(t, 2, cat.searchCalls)
}

func TestAggregateNamesTheMissingArtist(t *testing.T) {
	cat := twoArtistCatalog()
	rec := recommender.New(cat)

	_, err := rec.Aggregate(context.Background(), []string{"A", "nobody"})
	assert.ErrorIs(t, err, recommender.ErrArtistNotFound)
	assert.Contains(t, err.Error(), "nobody")
}

func TestRecommendationNames(t *testing.T) {
	rec := &recommender.Recommendation{Tracks: mkTracks("id-a", 2)}
	assert.Equal(t, []string{"id-a song 0", "id-a song 1"}, rec.Names())
}
