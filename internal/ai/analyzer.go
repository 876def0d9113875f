// Package ai derives a short summary and a normalized player-count
// descriptor from game metadata via an OpenAI chat completion.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/models"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/util"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/validator"
)

// Mode selects how the insight is extracted.
type Mode string

const (
	// ModeCombined asks for summary and players together as one JSON object.
	ModeCombined Mode = "combined"
	// ModeSplit derives genre locally and only asks the model for the
	// player descriptor, constrained to the closed vocabulary.
	ModeSplit Mode = "split"
)

// ErrIncomplete means the completion came back parseable but missing a
// required field. Treated as total failure; never a partial Insight.
var ErrIncomplete = errors.New("incomplete analysis response")

// The closed output vocabulary for the player descriptor.
var playersVocabulary = regexp.MustCompile(`^(Single-player|Multiplayer|Up to [1-9]\d* players)$`)

// totalPartyInstruction is part of the prompt contract: companion counts
// in descriptions must be reported as the total party size including the
// player themselves ("bring up to three friends" means 4 players). The
// model does this reasoning; the extractor never parses numbers itself.
const totalPartyInstruction = `When the description mentions a number of companions or friends rather than a total ` +
	`(for example "bring up to three friends"), report the TOTAL number of players including the player themselves ` +
	`(three friends means "Up to 4 players").`

type Analyzer struct {
	client           *openai.Client
	model            string
	mode             Mode
	descriptionLimit int
}

// New builds an analyzer. baseURL is only overridden in tests; pass ""
// for the real API.
func New(apiKey, baseURL, model string, mode Mode, descriptionLimit int) *Analyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Analyzer{
		client:           openai.NewClientWithConfig(cfg),
		model:            model,
		mode:             mode,
		descriptionLimit: descriptionLimit,
	}
}

// Analyze produces an Insight for the given game, or an error on any
// transport, parse, or validation failure. It never fabricates a default
// player descriptor; absence propagates to the caller.
func (a *Analyzer) Analyze(ctx context.Context, details *models.GameDetails) (*models.Insight, error) {
	if a.mode == ModeSplit {
		return a.analyzeSplit(ctx, details)
	}
	return a.analyzeCombined(ctx, details)
}

func (a *Analyzer) analyzeCombined(ctx context.Context, details *models.GameDetails) (*models.Insight, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          a.model,
		Temperature:    0.3,
		MaxTokens:      150,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a game analyst that always responds with a valid JSON object."},
			{Role: openai.ChatMessageRoleUser, Content: CombinedPrompt(details, a.descriptionLimit)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	var insight models.Insight
	if err := json.Unmarshal([]byte(stripFences(resp.Choices[0].Message.Content)), &insight); err != nil {
		return nil, fmt.Errorf("parsing analysis response: %w", err)
	}
	if err := validator.Struct(&insight); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	return &insight, nil
}

func (a *Analyzer) analyzeSplit(ctx context.Context, details *models.GameDetails) (*models.Insight, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.3,
		MaxTokens:   20,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You answer with exactly one player descriptor and nothing else."},
			{Role: openai.ChatMessageRoleUser, Content: PlayersPrompt(details, a.descriptionLimit)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	players := strings.TrimSpace(stripFences(resp.Choices[0].Message.Content))
	if !playersVocabulary.MatchString(players) {
		return nil, fmt.Errorf("%w: player descriptor %q outside vocabulary", ErrIncomplete, players)
	}
	return &models.Insight{Players: players}, nil
}

// CombinedPrompt builds the combined-mode instruction template.
func CombinedPrompt(details *models.GameDetails, descriptionLimit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the game %q and return a JSON object with exactly two keys: \"summary\" and \"players\".\n\n", details.Name)
	fmt.Fprintf(&b, "Game description: %q\n", util.Truncate(details.DetailedDescription, descriptionLimit))
	fmt.Fprintf(&b, "Store categories: %s\n\n", strings.Join(tagList(details.Categories), ", "))
	b.WriteString("For \"summary\": write a short, engaging summary of the game, two sentences at most.\n")
	b.WriteString("For \"players\": answer with exactly one of \"Single-player\", \"Multiplayer\", or \"Up to N players\" for a specific number N found in the description. ")
	b.WriteString(totalPartyInstruction)
	b.WriteString(" If the description gives no number, fall back to the store categories.\n")
	return b.String()
}

// PlayersPrompt builds the split-mode instruction template, which only
// asks for the player descriptor.
func PlayersPrompt(details *models.GameDetails, descriptionLimit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "How many players does the game %q support?\n\n", details.Name)
	fmt.Fprintf(&b, "Game description: %q\n", util.Truncate(details.DetailedDescription, descriptionLimit))
	fmt.Fprintf(&b, "Store categories: %s\n\n", strings.Join(tagList(details.Categories), ", "))
	b.WriteString("Answer with exactly one of: \"Single-player\", \"Multiplayer\", or \"Up to N players\" for a specific number N. ")
	b.WriteString(totalPartyInstruction)
	return b.String()
}

// DeriveGenre joins the store's genre tags. Deterministic, no model call.
func DeriveGenre(details *models.GameDetails) string {
	return strings.Join(tagList(details.Genres), ", ")
}

func tagList(tags []models.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Description != "" {
			out = append(out, t.Description)
		}
	}
	return out
}

// stripFences drops a markdown code fence the model sometimes wraps
// around its output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
