package models

import "strings"

// GameDetails is the canonical product metadata returned by the Steam
// storefront appdetails endpoint. Read-only for the rest of the pipeline.
type GameDetails struct {
	Name                string         `json:"name" validate:"required"`
	ShortDescription    string         `json:"short_description"`
	DetailedDescription string         `json:"detailed_description"`
	IsFree              bool           `json:"is_free"`
	Categories          []Tag          `json:"categories"`
	Genres              []Tag          `json:"genres"`
	PriceOverview       *PriceOverview `json:"price_overview,omitempty"`
}

// Tag is a category or genre label as Steam ships it.
type Tag struct {
	Description string `json:"description"`
}

type PriceOverview struct {
	Currency        string `json:"currency"`
	FinalFormatted  string `json:"final_formatted"`
	DiscountPercent int    `json:"discount_percent"`
}

// ReviewSummary is the aggregate player-review bucket from the appreviews
// endpoint. Optional everywhere; its absence never blocks a reply.
type ReviewSummary struct {
	ScoreDesc     string `json:"review_score_desc"`
	TotalPositive int    `json:"total_positive"`
	TotalNegative int    `json:"total_negative"`
	TotalReviews  int    `json:"total_reviews"`
}

// DealQuote is the single best current price found across the configured
// shop allow-list. The upstream service pre-ranks its deal list; we take
// the first entry and never re-sort.
type DealQuote struct {
	Store      string
	Amount     float64
	Currency   string
	CutPercent int
	URL        string
}

// Insight holds the two facts derived by the completion service.
// Players is constrained to "Single-player", "Multiplayer" or
// "Up to N players".
type Insight struct {
	Summary string `json:"summary" validate:"required"`
	Players string `json:"players" validate:"required"`
}

// RatingLevel is the semantic bucket behind Steam's qualitative review
// descriptors. Rendering (emoji, color) is left to the reply composer.
type RatingLevel int

const (
	RatingUnknown RatingLevel = iota
	RatingPositive
	RatingMixed
	RatingNegative
)

// RatingLevelFromDesc maps a Steam review_score_desc string
// ("Very Positive", "Mixed", "Overwhelmingly Negative", ...) to its level.
func RatingLevelFromDesc(desc string) RatingLevel {
	switch {
	case desc == "":
		return RatingUnknown
	case strings.Contains(desc, "Positive"):
		return RatingPositive
	case strings.Contains(desc, "Mixed"):
		return RatingMixed
	case strings.Contains(desc, "Negative"):
		return RatingNegative
	default:
		return RatingUnknown
	}
}
