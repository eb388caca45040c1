package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"go-jobsearch-agent/internal/ai"
	"go-jobsearch-agent/internal/browser"
	"go-jobsearch-agent/internal/logger"
)

const adaptiveErrorCeiling = 5

// Analyzer infers page structure from markup. *ai.Client implements it.
type Analyzer interface {
	SuggestSelectors(ctx context.Context, html string) (*ai.SelectorSuggestion, error)
}

// Adaptive asks an Analyzer for selectors and re-validates its answer
// against the live page. When the suggested card container matches nothing,
// it resolves like Static instead.
type Adaptive struct {
	analyzer Analyzer
	fallback *Static
	log      *zap.SugaredLogger
}

func NewAdaptive(analyzer Analyzer, log *zap.SugaredLogger) *Adaptive {
	return &Adaptive{analyzer: analyzer, fallback: NewStatic(), log: logger.OrNop(log)}
}

func (a *Adaptive) Name() string { return "adaptive" }

func (a *Adaptive) ErrorCeiling() int { return adaptiveErrorCeiling }

// Resolve fails when the analyzer fails. A suggestion is never trusted until
// its card container matches live elements.
func (a *Adaptive) Resolve(ctx context.Context, page browser.Page, snapshot string) (Result, error) {
	s, err := a.analyzer.SuggestSelectors(ctx, snapshot)
	if err != nil {
		return Result{}, fmt.Errorf("adaptive resolution: %w", err)
	}
	if s.Confidence != nil {
		a.log.Infof("📊 Page analyzed. Confidence: %.2f", *s.Confidence)
	} else {
		a.log.Info("📊 Page analyzed. Confidence: N/A")
	}

	m := merge(*s)
	if card, cards := a.validCard(page, snapshot, s.CardContainer); len(cards) > 0 {
		m.CardContainer = card
		return Result{Selectors: m, Cards: cards}, nil
	}

	a.log.Warnf("⚠️ Suggested card selector %q matched nothing, falling back to known selectors", s.CardContainer)
	res, err := a.fallback.Resolve(ctx, page, snapshot)
	if err != nil {
		return Result{}, err
	}
	m.CardContainer = res.Selectors.CardContainer
	m.Confidence = nil
	res.Selectors = m
	return res, nil
}

// validCard returns the first entry of the suggested list that matches the
// live page. Entries absent from the snapshot are not queried.
func (a *Adaptive) validCard(page browser.Page, snapshot, suggested string) (string, []browser.Element) {
	parts := SplitList(suggested)
	if len(parts) == 0 {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snapshot))
	if err != nil {
		return "", nil
	}
	for _, p := range parts {
		if doc.Find(p).Length() == 0 {
			continue
		}
		if cards := queryCards(page, p); len(cards) > 0 {
			return p, cards
		}
	}
	return "", nil
}

// merge puts the suggested selectors ahead of the known candidates for each
// field so an unhelpful suggestion only costs a lookup.
func merge(s ai.SelectorSuggestion) Map {
	d := Defaults()
	return Map{
		Title:           JoinList(s.Title, d.Title),
		Company:         JoinList(s.Company, d.Company),
		Location:        JoinList(s.Location, d.Location),
		PostedTime:      d.PostedTime,
		Description:     d.Description,
		NextPageControl: JoinList(s.NextPage, d.NextPageControl),
		Confidence:      s.Confidence,
	}
}
