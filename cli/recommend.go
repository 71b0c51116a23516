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

func recommend(ctx context.Context, args []string) error {
	subcmd := subcmd.New("recommend", "pick a random selection of the given artists' top tracks\nrequires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	subcmd.SetArg("artists", "strings", "artist names to draw tracks from (required)")
	var (
		count     = subcmd.Int("tracks", 5, "number of tracks to return")
		cacheFile = subcmd.String("cache", "", "sqlite file for caching catalog lookups")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	catalog, cleanup, err := newCatalog(*cacheFile)
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := recommender.New(catalog).Recommend(ctx, recommender.Request{
		Artists: subcmd.Args(),
		Tracks:  *count,
	})
	if err != nil {
		return fmt.Errorf("recommendation error: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, strings.Join([]string{"track", "artist", "album"}, "\t")+"\n")
	for _, track := range rec.Tracks {
		fmt.Fprintf(tw, strings.Join([]string{
			track.Name, track.ArtistName, track.AlbumName,
		}, "\t")+"\n")
	}
	tw.Flush()

	return nil
}
