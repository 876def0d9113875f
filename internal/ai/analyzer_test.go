package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/models"
)

var testDetails = &models.GameDetails{
	Name:                "Deep Rock Galactic",
	DetailedDescription: "Mine together, or die alone! Bring up to three friends on expeditions.",
	Categories:          []models.Tag{{Description: "Online Co-op"}, {Description: "Multi-player"}},
	Genres:              []models.Tag{{Description: "Action"}, {Description: "Co-op"}},
}

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

// fakeCompletionServer returns an analyzer pointed at a stub OpenAI API
// that replies with content and records the last request.
func fakeCompletionServer(t *testing.T, mode Mode, content string) (*Analyzer, *capturedRequest, func()) {
	t.Helper()
	captured := &capturedRequest{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Fatalf("Failed to decode completion request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-test", "object": "chat.completion", "created": 1, "model": %q,
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": %q}}]
		}`, captured.Model, content)
	}))

	analyzer := New("test-key", server.URL+"/v1", "gpt-4o-mini", mode, 1500)
	return analyzer, captured, server.Close
}

func TestAnalyze_Combined(t *testing.T) {
	analyzer, captured, done := fakeCompletionServer(t, ModeCombined,
		`{"summary":"Co-op mining mayhem in procedurally generated caves.","players":"Up to 4 players"}`)
	defer done()

	insight, err := analyzer.Analyze(context.Background(), testDetails)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if insight.Players != "Up to 4 players" {
		t.Errorf("Players = %q, want Up to 4 players", insight.Players)
	}
	if insight.Summary == "" {
		t.Error("Summary should not be empty")
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Error("Combined mode must request JSON object output")
	}
}

func TestAnalyze_Combined_MissingPlayersIsTotalFailure(t *testing.T) {
	analyzer, _, done := fakeCompletionServer(t, ModeCombined, `{"summary":"A fine game."}`)
	defer done()

	_, err := analyzer.Analyze(context.Background(), testDetails)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Analyze() error = %v, want ErrIncomplete", err)
	}
}

func TestAnalyze_Combined_FencedJSON(t *testing.T) {
	analyzer, _, done := fakeCompletionServer(t, ModeCombined,
		"```json\n{\"summary\":\"Fine.\",\"players\":\"Single-player\"}\n```")
	defer done()

	insight, err := analyzer.Analyze(context.Background(), testDetails)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if insight.Players != "Single-player" {
		t.Errorf("Players = %q, want Single-player", insight.Players)
	}
}

func TestAnalyze_Combined_MalformedJSON(t *testing.T) {
	analyzer, _, done := fakeCompletionServer(t, ModeCombined, "the game is great, four players")
	defer done()

	if _, err := analyzer.Analyze(context.Background(), testDetails); err == nil {
		t.Error("Analyze() should fail on a non-JSON response")
	}
}

func TestAnalyze_PromptCarriesTotalPartyInstruction(t *testing.T) {
	for _, mode := range []Mode{ModeCombined, ModeSplit} {
		t.Run(string(mode), func(t *testing.T) {
			// Split mode replies with plain text, not JSON.
			content := `{"summary":"Fine.","players":"Up to 4 players"}`
			if mode == ModeSplit {
				content = "Up to 4 players"
			}
			analyzer, captured, done := fakeCompletionServer(t, mode, content)
			defer done()

			if _, err := analyzer.Analyze(context.Background(), testDetails); err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}

			var userPrompt string
			for _, m := range captured.Messages {
				if m.Role == "user" {
					userPrompt = m.Content
				}
			}
			if !strings.Contains(userPrompt, "including the player themselves") {
				t.Error("Prompt must carry the total-party normalization instruction")
			}
			if !strings.Contains(userPrompt, "Bring up to three friends") {
				t.Error("Prompt must include the game description")
			}
		})
	}
}

func TestAnalyze_Split(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"single-player", "Single-player", "Single-player", false},
		{"multiplayer", "Multiplayer", "Multiplayer", false},
		{"bounded count", "Up to 4 players", "Up to 4 players", false},
		{"large count", "Up to 100 players", "Up to 100 players", false},
		{"whitespace trimmed", "  Up to 4 players\n", "Up to 4 players", false},
		{"outside vocabulary", "Probably around four players", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer, _, done := fakeCompletionServer(t, ModeSplit, tt.content)
			defer done()

			insight, err := analyzer.Analyze(context.Background(), testDetails)
			if tt.wantErr {
				if !errors.Is(err, ErrIncomplete) {
					t.Fatalf("Analyze() error = %v, want ErrIncomplete", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if insight.Players != tt.want {
				t.Errorf("Players = %q, want %q", insight.Players, tt.want)
			}
		})
	}
}

func TestAnalyze_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	analyzer := New("test-key", server.URL+"/v1", "gpt-4o-mini", ModeCombined, 1500)
	if _, err := analyzer.Analyze(context.Background(), testDetails); err == nil {
		t.Error("Analyze() should surface transport failures")
	}
}

func TestDeriveGenre(t *testing.T) {
	if got := DeriveGenre(testDetails); got != "Action, Co-op" {
		t.Errorf("DeriveGenre() = %q, want Action, Co-op", got)
	}
	if got := DeriveGenre(&models.GameDetails{}); got != "" {
		t.Errorf("DeriveGenre() on empty tags = %q, want empty", got)
	}
}

func TestCombinedPrompt_TruncatesDescription(t *testing.T) {
	long := &models.GameDetails{
		Name:                "Wordy Game",
		DetailedDescription: strings.Repeat("lore ", 1000),
	}
	prompt := CombinedPrompt(long, 200)
	if strings.Contains(prompt, strings.Repeat("lore ", 100)) {
		t.Error("Prompt should not contain the full untruncated description")
	}
	if !strings.Contains(prompt, "...") {
		t.Error("Truncated description should end with an ellipsis")
	}
}
