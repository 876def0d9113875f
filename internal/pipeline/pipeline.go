// Package pipeline runs one best-effort aggregation per inbound message:
// extract an app ID, fan out to the storefront, deal, and analysis
// services, and compose a reply that degrades section by section.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/ai"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/models"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/steam"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/util"
)

// The only two user-visible failure notices. Everything else degrades
// silently into an omitted reply section.
const (
	detailsUnavailableNotice  = "Sorry, I couldn't fetch details for that game."
	analysisUnavailableNotice = "Sorry, the summary AI is having trouble right now."
)

type Pipeline struct {
	storefront Storefront
	deals      DealFinder
	analyzer   Analyzer
	log        *slog.Logger
}

func New(s Storefront, d DealFinder, a Analyzer) *Pipeline {
	return &Pipeline{
		storefront: s,
		deals:      d,
		analyzer:   a,
		log:        slog.Default().With("component", "pipeline"),
	}
}

// HandleMessage runs the pipeline for one inbound message. The second
// return is false when the text contains no recognizable store link, in
// which case no reply is sent and no network call is made. Whenever an
// app ID is detected, some reply text is always returned — a composed
// summary or an explicit failure notice, never silence.
func (p *Pipeline) HandleMessage(ctx context.Context, text string) (string, bool) {
	appID, ok := util.ExtractAppID(text)
	if !ok {
		return "", false
	}
	p.log.Info("Detected Steam link", "app_id", appID)

	// Details are the one essential input: reviews degrade, deals degrade,
	// but the title, the price line, and the analysis prompt all need them.
	details, err := p.storefront.FetchDetails(ctx, appID)
	if err != nil {
		p.log.Error("Fetching game details failed", "app_id", appID, "error", err)
		return detailsUnavailableNotice, true
	}

	// The remaining three sources are independent; fan out so the reply is
	// bounded by the slowest call rather than their sum.
	var (
		review  *models.ReviewSummary
		deal    *models.DealQuote
		insight *models.Insight
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := p.storefront.FetchReviewSummary(gctx, appID)
		if err != nil {
			p.log.Warn("Review summary unavailable", "app_id", appID, "error", err)
			return nil
		}
		review = r
		return nil
	})
	g.Go(func() error {
		d, err := p.deals.BestDeal(gctx, appID, details.Name)
		if err != nil {
			p.log.Info("No deal found", "app_id", appID, "error", err)
			return nil
		}
		deal = d
		return nil
	})
	g.Go(func() error {
		i, err := p.analyzer.Analyze(gctx, details)
		if err != nil {
			p.log.Error("Game analysis failed", "app_id", appID, "error", err)
			return nil
		}
		insight = i
		return nil
	})
	_ = g.Wait() // subtasks degrade in place and never return errors

	// Player info is essential by design; without it the reply would be
	// hollow, so analysis failure is surfaced instead of papered over.
	if insight == nil {
		return analysisUnavailableNotice, true
	}

	reply := composeReply(details, review, deal, insight, ai.DeriveGenre(details), steam.FormatPrice(details), appID)
	return reply.Render(), true
}
