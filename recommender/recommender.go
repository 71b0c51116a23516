// Package recommender picks a random selection of tracks from the top-tracks
// lists of a set of artists.
//
// The recommender is stateless: each call to Recommend resolves the requested
// artists against the catalog, pools their top tracks, and samples from that
// pool without replacement. Nothing is carried over between calls.
package recommender

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/amonks/recommender/data"
	"golang.org/x/sync/errgroup"
)

// MaxTracksPerArtist is Spotify's cap on the length of an artist's
// top-tracks list.
const MaxTracksPerArtist = 10

// aggregateParallelism bounds the number of concurrent catalog lookups
// within a single Recommend call.
const aggregateParallelism = 4

var (
	// ErrArtistNotFound means a search for an artist name had no results.
	ErrArtistNotFound = errors.New("artist not found")

	// ErrInvalidLimit means a caller asked for more top tracks than
	// Spotify can return for one artist.
	ErrInvalidLimit = errors.New("invalid track limit")

	// ErrCapacityExceeded means the requested track count is more than
	// ten times the number of requested artists, so the request could
	// never be satisfied.
	ErrCapacityExceeded = errors.New("requested count exceeds capacity")

	// ErrInsufficientTracks means the artists' real top-tracks lists,
	// pooled together, hold fewer tracks than were requested. This can
	// happen even when the capacity check passes, since some artists
	// have fewer than ten top tracks.
	ErrInsufficientTracks = errors.New("not enough tracks available")

	// ErrInvalidRequest means the request was malformed: no artists, or
	// a non-positive track count.
	ErrInvalidRequest = errors.New("invalid request")
)

// A Catalog resolves artist names and lists artists' top tracks. It's
// implemented by spotify.Client and by cache.Cache.
type Catalog interface {
	// SearchArtists returns artists matching the given name, in the
	// catalog's own relevance order.
	SearchArtists(ctx context.Context, name string) ([]data.Artist, error)

	// ArtistTopTracks returns up to ten of the artist's top tracks, in
	// the catalog's own ranking order.
	ArtistTopTracks(ctx context.Context, artistSpotifyID string) ([]data.Track, error)
}

// Request asks for Tracks tracks drawn from the top tracks of the named
// Artists. Duplicate names are permitted and order doesn't matter.
type Request struct {
	Artists []string `json:"artists"`
	Tracks  int      `json:"tracks"`
}

// A Recommendation holds the sampled tracks. Their order is random.
type Recommendation struct {
	Tracks []data.Track `json:"tracks"`
}

// Names returns just the track names, suitable for showing to a person.
func (rec *Recommendation) Names() []string {
	names := make([]string, len(rec.Tracks))
	for i, track := range rec.Tracks {
		names[i] = track.Name
	}
	return names
}

// New creates a Recommender backed by the given catalog.
func New(catalog Catalog) *Recommender {
	return &Recommender{catalog: catalog}
}

type Recommender struct {
	catalog Catalog
}

// Resolve finds the artist a free-text name refers to, taking the catalog's
// first search result. It fails with ErrArtistNotFound if the search comes
// back empty.
func (rec *Recommender) Resolve(ctx context.Context, query string) (data.Artist, error) {
	artists, err := rec.catalog.SearchArtists(ctx, query)
	if err != nil {
		return data.Artist{}, fmt.Errorf("error searching for artist '%s': %w", query, err)
	}
	if len(artists) == 0 {
		return data.Artist{}, fmt.Errorf("no artists found with name '%s': %w", query, ErrArtistNotFound)
	}
	return artists[0], nil
}

// TopTracks returns up to limit of the artist's top tracks, in the catalog's
// ranking order, each stamped with the artist it was fetched for. It fails
// with ErrInvalidLimit before making any catalog call if limit is negative
// or above MaxTracksPerArtist.
func (rec *Recommender) TopTracks(ctx context.Context, artist data.Artist, limit int) ([]data.Track, error) {
	if limit < 0 || limit > MaxTracksPerArtist {
		return nil, fmt.Errorf("can only provide up to %d tracks per artist, not %d: %w",
			MaxTracksPerArtist, limit, ErrInvalidLimit)
	}

	tracks, err := rec.catalog.ArtistTopTracks(ctx, artist.SpotifyID)
	if err != nil {
		return nil, fmt.Errorf("error fetching top tracks for '%s': %w", artist.Name, err)
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}

	for i := range tracks {
		tracks[i].ArtistSpotifyID = artist.SpotifyID
		tracks[i].ArtistName = artist.Name
	}
	return tracks, nil
}

// Aggregate resolves each query and fetches that artist's top ten tracks,
// returning a map from query to track list. Lookups for distinct queries run
// concurrently; duplicate queries collapse to one entry. If any query fails
// to resolve, the whole aggregation fails.
func (rec *Recommender) Aggregate(ctx context.Context, queries []string) (map[string][]data.Track, error) {
	var (
		mu       sync.Mutex
		byArtist = make(map[string][]data.Track, len(queries))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(aggregateParallelism)

	for _, query := range queries {
		mu.Lock()
		if _, ok := byArtist[query]; ok {
			mu.Unlock()
			continue
		}
		byArtist[query] = nil
		mu.Unlock()

		query := query
		g.Go(func() error {
			artist, err := rec.Resolve(ctx, query)
			if err != nil {
				return err
			}
			tracks, err := rec.TopTracks(ctx, artist, MaxTracksPerArtist)
			if err != nil {
				return err
			}
			mu.Lock()
			byArtist[query] = tracks
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return byArtist, nil
}

// Recommend produces exactly req.Tracks tracks, sampled uniformly without
// replacement from the pooled top tracks of req.Artists. The same (artist,
// track) pair never appears twice, and the output order is random.
func (rec *Recommender) Recommend(ctx context.Context, req Request) (*Recommendation, error) {
	if len(req.Artists) == 0 {
		return nil, fmt.Errorf("no artists given: %w", ErrInvalidRequest)
	}
	if req.Tracks <= 0 {
		return nil, fmt.Errorf("track count must be positive, not %d: %w", req.Tracks, ErrInvalidRequest)
	}

	maxTracks := MaxTracksPerArtist * len(req.Artists)
	if req.Tracks > maxTracks {
		return nil, fmt.Errorf("only %d tracks per artist; max for %d artists is %d, not %d: %w",
			MaxTracksPerArtist, len(req.Artists), maxTracks, req.Tracks, ErrCapacityExceeded)
	}

	byArtist, err := rec.Aggregate(ctx, req.Artists)
	if err != nil {
		return nil, err
	}

	var pool []data.Track
	for _, tracks := range byArtist {
		pool = append(pool, tracks...)
	}

	if len(pool) < req.Tracks {
		return nil, fmt.Errorf("requested %d tracks but only %d are available: %w",
			req.Tracks, len(pool), ErrInsufficientTracks)
	}

	return &Recommendation{Tracks: sample(pool, req.Tracks)}, nil
}

// sample draws n elements from pool uniformly without replacement.
func sample(pool []data.Track, n int) []data.Track {
	picks := make([]data.Track, n)
	for i, j := range rand.Perm(len(pool))[:n] {
		picks[i] = pool[j]
	}
	return picks
}
