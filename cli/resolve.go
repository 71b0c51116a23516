package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/amonks/recommender/recommender"
	"github.com/amonks/recommender/subcmd"
)

func resolve(ctx context.Context, args []string) error {
	subcmd := subcmd.New("resolve", "show which artist a name resolves to\nrequires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	subcmd.SetArg("name", "string", "artist name to resolve (required)")
	cacheFile := subcmd.String("cache", "", "sqlite file for caching catalog lookups")
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

	artist, err := recommender.New(catalog).Resolve(ctx, name)
	if err != nil {
		return err
	}

	fmt.Printf("%s\t%s\t%d followers\n", artist.SpotifyID, artist.Name, artist.Followers)
	return nil
}
