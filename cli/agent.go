package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/amonks/recommender/agent"
	"github.com/amonks/recommender/recommender"
	"github.com/amonks/recommender/subcmd"
)

func agentCmd(ctx context.Context, args []string) error {
	subcmd := subcmd.New("agent", "ask for music in plain language\nrequires OPENAI_API_KEY, SPOTIFY_CLIENT_ID, and SPOTIFY_CLIENT_SECRET")
	subcmd.SetArg("prompt", "string", "what you'd like to hear (required)")
	var (
		model     = subcmd.String("model", "", "chat model to use (default gpt-4o)")
		cacheFile = subcmd.String("cache", "", "sqlite file for caching catalog lookups")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	prompt := strings.Join(subcmd.Args(), " ")
	if prompt == "" {
		return fmt.Errorf("must give a prompt")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("must set OPENAI_API_KEY")
	}

	catalog, cleanup, err := newCatalog(*cacheFile)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, err := agent.New(apiKey, *model, recommender.New(catalog)).Run(ctx, prompt)
	if err != nil {
		return fmt.Errorf("agent error: %w", err)
	}

	fmt.Println(answer)
	return nil
}
