package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/amonks/recommender/recommender"
	"github.com/amonks/recommender/subcmd"
)

func tracks(ctx context.Context, args []string) error {
	subcmd := subcmd.New("tracks", "list an artist's top tracks\nrequires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	subcmd.SetArg("name", "string", "artist name (required)")
	var (
		limit     = subcmd.Int("limit", recommender.MaxTracksPerArtist, "number of tracks to list, at most 10")
		cacheFile = subcmd.String("cache", "", "sqlite file for caching catalog lookups")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	name := strings.Join(subcmd.Args(), " ")
	if name == "" {
		return fmt.Errorf("must give an artist name")
	}

	catalog, cleanup, err := newCatalog(*cacheFile)
	if err != nil {
		return err
	}
	defer cleanup()

	rec := recommender.New(catalog)
	artist, err := rec.Resolve(ctx, name)
	if err != nil {
		return err
	}
	tracks, err := rec.TopTracks(ctx, artist, *limit)
	if err != nil {
		return err
	}

	if len(tracks) == 0 {
		fmt.Printf("no top tracks for '%s'\n", artist.Name)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, strings.Join([]string{"track", "album", "popularity"}, "\t")+"\n")
	for _, track := range tracks {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", track.Name, track.AlbumName, track.Popularity)
	}
	tw.Flush()

	return nil
}
