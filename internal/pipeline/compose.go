package pipeline

import (
	"fmt"
	"strings"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/models"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/steam"
)

// Reply is an ordered sequence of optional text sections. Each section is
// present or absent on its own, based on which upstream sources succeeded.
type Reply struct {
	sections []string
}

func (r Reply) Render() string {
	return strings.Join(r.sections, "\n")
}

func (r *Reply) add(section string) {
	if section != "" {
		r.sections = append(r.sections, section)
	}
}

// composeReply merges the pipeline results into Telegram Markdown. Pure
// function; section order is fixed (title, summary, rating, genre,
// players, price, deal) and absent sources simply drop their section.
func composeReply(details *models.GameDetails, review *models.ReviewSummary, deal *models.DealQuote,
	insight *models.Insight, genre, price, appID string) Reply {

	var r Reply
	r.add(fmt.Sprintf("*%s*", details.Name))
	if insight.Summary != "" {
		r.add("_" + insight.Summary + "_")
	}
	if review != nil {
		r.add(ratingSection(review))
	}
	if genre != "" {
		r.add("*Genre:* " + genre)
	}
	r.add("*Players:* " + insight.Players)
	r.add(fmt.Sprintf("*Price:* [%s](%s)", price, steam.StoreURL(appID)))
	if deal != nil {
		r.add(dealSection(deal))
	}
	return r
}

// ratingSection renders the semantic rating level; the emoji choice lives
// here, in the output adapter, not in the data model.
func ratingSection(review *models.ReviewSummary) string {
	var symbol string
	switch models.RatingLevelFromDesc(review.ScoreDesc) {
	case models.RatingPositive:
		symbol = "🟢"
	case models.RatingMixed:
		symbol = "🟡"
	case models.RatingNegative:
		symbol = "🔴"
	default:
		return ""
	}
	return fmt.Sprintf("%s *Rating:* %s", symbol, review.ScoreDesc)
}

func dealSection(deal *models.DealQuote) string {
	text := fmt.Sprintf("%.2f %s (-%d%%) at %s", deal.Amount, deal.Currency, deal.CutPercent, deal.Store)
	if deal.URL != "" {
		return fmt.Sprintf("*Best Deal:* [%s](%s)", text, deal.URL)
	}
	return "*Best Deal:* " + text
}
