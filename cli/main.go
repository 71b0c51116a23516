// this program recommends music: it asks spotify for the top tracks of some
// artists, then picks a random selection of them.
//
// the 'agent' subcommand wires the same recommender up to an LLM as a
// function-calling tool, so you can ask for music in plain language.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/amonks/recommender/cache"
	"github.com/amonks/recommender/recommender"
	"github.com/amonks/recommender/spotify"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		panic(err)
	}
}

var usage = strings.TrimSpace(`
usage: recommender $cmd
valid $cmd are 'recommend', 'agent', 'resolve', 'tracks'
for help: recommender $cmd -help
`)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(os.Args) < 2 {
		return fmt.Errorf(usage)
	}
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "recommend":
		return recommend(ctx, args)

	case "agent":
		return agentCmd(ctx, args)

	case "resolve":
		return resolve(ctx, args)

	case "tracks":
		return tracks(ctx, args)

	default:
		return fmt.Errorf("unknown cmd: '%s'\n%s", cmd, usage)
	}
}

// newCatalog builds the Spotify catalog from the environment, wrapped in a
// sqlite read-through cache if cacheFile is nonempty. The returned cleanup
// closes the cache's database pool.
func newCatalog(cacheFile string) (recommender.Catalog, func() error, error) {
	clientID, clientSecret := os.Getenv("SPOTIFY_CLIENT_ID"), os.Getenv("SPOTIFY_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, nil, fmt.Errorf("must set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}
	spo := spotify.New(clientID, clientSecret)

	if cacheFile == "" {
		return spo, func() error { return nil }, nil
	}

	c, err := cache.Open(cacheFile, spo)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}
