package pipeline

import (
	"context"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/models"
)

// Storefront abstracts the Steam client.
type Storefront interface {
	FetchDetails(ctx context.Context, appID string) (*models.GameDetails, error)
	FetchReviewSummary(ctx context.Context, appID string) (*models.ReviewSummary, error)
}

// DealFinder abstracts the deal resolver. title feeds the free-text
// fallback lookup and may be empty.
type DealFinder interface {
	BestDeal(ctx context.Context, appID, title string) (*models.DealQuote, error)
}

// Analyzer abstracts the completion-backed insight extractor.
type Analyzer interface {
	Analyze(ctx context.Context, details *models.GameDetails) (*models.Insight, error)
}
