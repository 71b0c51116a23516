// Package agent exposes the recommender to an LLM as a function-calling
// tool.
//
// The agent owns no recommendation logic. It registers one tool,
// recommend_tracks, runs the chat-completion tool-call loop until the model
// produces a final text answer, and hands structured tool calls to the
// recommender. Natural-language understanding is entirely the model's job.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/amonks/recommender/recommender"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const toolName = "recommend_tracks"

const systemPrompt = `You are a music recommendation assistant. When asked
for music recommendations, use the recommend_tracks tool, then present its
tracks to the user. If the tool reports an error, explain the problem to the
user in plain language; don't retry with different arguments unless the user
asks.`

// maxTurns bounds the tool-call loop so a confused model can't spin
// forever.
const maxTurns = 8

// A Recommender is the one operation the agent can invoke. It's implemented
// by recommender.Recommender.
type Recommender interface {
	Recommend(ctx context.Context, req recommender.Request) (*recommender.Recommendation, error)
}

// New creates an Agent that answers prompts with the given model, calling
// rec for recommendations. An empty model selects gpt-4o.
func New(apiKey, model string, rec Recommender) *Agent {
	chatModel := shared.ChatModel(model)
	if model == "" {
		chatModel = shared.ChatModelGPT4o
	}
	return &Agent{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  chatModel,
		rec:    rec,
	}
}

type Agent struct {
	client openai.Client
	model  shared.ChatModel
	rec    Recommender
}

// Run answers one free-text prompt, executing any tool calls the model
// makes along the way, and returns the model's final text answer.
func (a *Agent) Run(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Tools: []openai.ChatCompletionToolParam{recommendToolParam()},
	}

	for turn := 0; turn < maxTurns; turn++ {
		completion, err := a.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("chat error: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("chat response had no choices")
		}

		message := completion.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			return message.Content, nil
		}

		params.Messages = append(params.Messages, message.ToParam())
		for _, call := range message.ToolCalls {
			log.Printf("tool call:\t%s\t%s", call.Function.Name, call.Function.Arguments)
			result := a.dispatch(ctx, call.Function.Name, []byte(call.Function.Arguments))
			params.Messages = append(params.Messages, openai.ToolMessage(result, call.ID))
		}
	}

	return "", fmt.Errorf("no final answer after %d turns", maxTurns)
}

// dispatch executes one tool call. Tool failures aren't errors for the chat
// loop: they go back to the model as the tool result, so it can narrate
// them to the user.
func (a *Agent) dispatch(ctx context.Context, name string, args []byte) string {
	if name != toolName {
		return fmt.Sprintf(`{"error": "unknown tool '%s'"}`, name)
	}

	result, err := a.recommendCall(ctx, args)
	if err != nil {
		bs, merr := json.Marshal(map[string]string{"error": err.Error()})
		if merr != nil {
			return `{"error": "recommendation failed"}`
		}
		return string(bs)
	}
	return result
}

// recommendCall unmarshals the model's arguments, runs the recommender, and
// returns the sampled track names as JSON.
func (a *Agent) recommendCall(ctx context.Context, args []byte) (string, error) {
	var req recommender.Request
	if err := json.Unmarshal(args, &req); err != nil {
		return "", fmt.Errorf("bad recommend_tracks arguments: %w", err)
	}

	rec, err := a.rec.Recommend(ctx, req)
	if err != nil {
		return "", err
	}

	bs, err := json.Marshal(map[string][]string{"tracks": rec.Names()})
	if err != nil {
		return "", fmt.Errorf("error encoding recommendation: %w", err)
	}
	return string(bs), nil
}

func recommendToolParam() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        toolName,
			Description: openai.String("Use this tool when asked for music recommendations. Picks a random selection of tracks from the named artists' most popular songs. Each artist has at most 10 top tracks, so the track count can't exceed 10 times the number of artists."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"artists": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "A list of artists that they'd like to see music from.",
					},
					"tracks": map[string]any{
						"type":        "integer",
						"description": "The number of tracks/songs they want returned.",
					},
				},
				"required": []string{"artists", "tracks"},
			},
		},
	}
}
