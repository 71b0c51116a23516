// Package cache is a read-through catalog cache on a sqlite3 database file.
//
// A Cache wraps another recommender.Catalog and memoizes artist resolution
// and top-tracks lists, so that repeated requests for the same artists don't
// spend Spotify API quota. It caches catalog lookups only; recommendation
// requests and results are never stored.
package cache

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/amonks/recommender/data"
	"github.com/amonks/recommender/recommender"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cache represents our sqlite3 cache file. It implements
// recommender.Catalog.
type Cache struct {
	db       *gorm.DB
	upstream recommender.Catalog
}

//go:embed schema.sql
var schema string

// Open returns a read-through cache over upstream, backed by a migrated
// sqlite3 database file on disk, creating the file and running migrations
// if necessary.
func Open(filename string, upstream recommender.Catalog) (*Cache, error) {
	gdb, err := gorm.Open(sqlite.Open(filename), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening cache file at '%s': %w", filename, err)
	}

	if err := gdb.Exec(schema).Error; err != nil {
		return nil, fmt.Errorf("error migrating cache at '%s': %w", filename, err)
	}

	return &Cache{db: gdb, upstream: upstream}, nil
}

func (c *Cache) Close() error {
	pool, err := c.db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// SearchArtists returns the cached winner for a previously-seen query, or
// else searches upstream and caches the first result. Empty upstream
// results are passed through uncached, so a name that resolves later isn't
// pinned as missing.
func (c *Cache) SearchArtists(ctx context.Context, name string) ([]data.Artist, error) {
	var search searchRow
	err := c.db.WithContext(ctx).
		Where("query = ?", name).
		First(&search).
		Error
	if err == nil {
		var artist artistRow
		if err := c.db.WithContext(ctx).
			Where("spotify_id = ?", search.ArtistSpotifyID).
			First(&artist).
			Error; err != nil {
			return nil, fmt.Errorf("error loading cached artist '%s': %w", search.ArtistSpotifyID, err)
		}
		return []data.Artist{artist.toData()}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking search cache for '%s': %w", name, err)
	}

	artists, err := c.upstream.SearchArtists(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(artists) == 0 {
		return artists, nil
	}

	if err := c.insertArtist(ctx, artists[0]); err != nil {
		return nil, err
	}
	if err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&searchRow{Query: name, ArtistSpotifyID: artists[0].SpotifyID}).
		Error; err != nil {
		return nil, fmt.Errorf("error caching search for '%s': %w", name, err)
	}

	return artists, nil
}

// ArtistTopTracks returns the cached top-tracks list for the artist, or
// else fetches it upstream and caches it. An empty list is a valid cached
// value: it's recorded via the artist's has_fetched_tracks flag.
func (c *Cache) ArtistTopTracks(ctx context.Context, artistSpotifyID string) ([]data.Track, error) {
	var artist artistRow
	err := c.db.WithContext(ctx).
		Where("spotify_id = ?", artistSpotifyID).
		First(&artist).
		Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking track cache for '%s': %w", artistSpotifyID, err)
	}

	if err == nil && artist.HasFetchedTracks {
		var rows []trackRow
		if err := c.db.WithContext(ctx).
			Where("artist_spotify_id = ?", artistSpotifyID).
			Order("rank").
			Find(&rows).
			Error; err != nil {
			return nil, fmt.Errorf("error loading cached tracks for '%s': %w", artistSpotifyID, err)
		}
		tracks := make([]data.Track, len(rows))
		for i, row := range rows {
			tracks[i] = row.toData()
		}
		return tracks, nil
	}

	tracks, err := c.upstream.ArtistTopTracks(ctx, artistSpotifyID)
	if err != nil {
		return nil, err
	}

	for rank, track := range tracks {
		if err := c.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&trackRow{
				ArtistSpotifyID: artistSpotifyID,
				SpotifyID:       track.SpotifyID,
				Rank:            rank,
				Name:            track.Name,
				Popularity:      track.Popularity,
				AlbumSpotifyID:  track.AlbumSpotifyID,
				AlbumName:       track.AlbumName,
				ArtistName:      track.ArtistName,
			}).
			Error; err != nil {
			return nil, fmt.Errorf("error caching track '%s': %w", track.Name, err)
		}
	}

	if err := c.insertArtist(ctx, data.Artist{SpotifyID: artistSpotifyID}); err != nil {
		return nil, err
	}
	if err := c.markArtistFetched(ctx, artistSpotifyID); err != nil {
		return nil, err
	}

	return tracks, nil
}

// insertArtist inserts the artist into the artists table, doing nothing if
// it already exists.
func (c *Cache) insertArtist(ctx context.Context, artist data.Artist) error {
	if err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&artistRow{
			SpotifyID:  artist.SpotifyID,
			Name:       artist.Name,
			ImageURL:   artist.ImageURL,
			Followers:  artist.Followers,
			Popularity: artist.Popularity,
		}).
		Error; err != nil {
		return fmt.Errorf("error caching artist '%s': %w", artist.Name, err)
	}
	return nil
}

func (c *Cache) markArtistFetched(ctx context.Context, artistSpotifyID string) error {
	if err := c.db.WithContext(ctx).
		Table("artists").
		Where("spotify_id = ?", artistSpotifyID).
		Update("has_fetched_tracks", true).
		Error; err != nil {
		return fmt.Errorf("error marking artist '%s' tracks as fetched: %w", artistSpotifyID, err)
	}
	return nil
}

type searchRow struct {
	Query           string `gorm:"primaryKey"`
	ArtistSpotifyID string
}

func (searchRow) TableName() string { return "artist_searches" }

type artistRow struct {
	SpotifyID        string `gorm:"primaryKey"`
	Name             string
	ImageURL         string
	Followers        int64
	Popularity       int64
	HasFetchedTracks bool
}

func (artistRow) TableName() string { return "artists" }

func (row artistRow) toData() data.Artist {
	return data.Artist{
		SpotifyID:  row.SpotifyID,
		Name:       row.Name,
		ImageURL:   row.ImageURL,
		Followers:  row.Followers,
		Popularity: row.Popularity,
	}
}

type trackRow struct {
	ArtistSpotifyID string `gorm:"primaryKey"`
	SpotifyID       string `gorm:"primaryKey"`
	Rank            int
	Name            string
	Popularity      int64
	AlbumSpotifyID  string
	AlbumName       string
	ArtistName      string
}

func (trackRow) TableName() string { return "tracks" }

func (row trackRow) toData() data.Track {
	return data.Track{
		SpotifyID:       row.SpotifyID,
		Name:            row.Name,
		Popularity:      row.Popularity,
		AlbumSpotifyID:  row.AlbumSpotifyID,
		AlbumName:       row.AlbumName,
		ArtistSpotifyID: row.ArtistSpotifyID,
		ArtistName:      row.ArtistName,
	}
}
