// Package selector decides which CSS selectors address the job cards, the
// detail panel fields and the pagination control of a results page.
package selector

import (
	"context"
	"errors"
	"strings"

	"go-jobsearch-agent/internal/browser"
)

// ErrNoCards means no card-container candidate matched the live page.
var ErrNoCards = errors.New("no job cards matched any card selector")

// Map holds one CSS selector list per field. The order of a list is its
// priority: consumers try each entry in turn and keep the first that yields
// something. An empty field is valid and means the field is absent.
type Map struct {
	CardContainer   string   `json:"card_container"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	PostedTime      string   `json:"posted_time"`
	Description     string   `json:"description"`
	NextPageControl string   `json:"next_page_control"`
	Confidence      *float64 `json:"confidence,omitempty"`
}

// Result is a resolved map plus the live card handles it matched.
type Result struct {
	Selectors Map
	Cards     []browser.Element
}

// Strategy resolves the selectors of the page currently loaded in page.
// snapshot is the page markup captured just before the call.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, page browser.Page, snapshot string) (Result, error)
	// ErrorCeiling is the number of consecutive failures after which a
	// session using this strategy gives up.
	ErrorCeiling() int
}

var (
	CardCandidates = []string{
		"li[data-occludable-job-id]",
		".jobs-search-results__list-item",
		"li.ember-view.jobs-search-results__list-item",
		".job-card-container",
		"[data-job-id]",
	}
	TitleCandidates = []string{
		"h1.t-24.t-bold.inline",
		".jobs-unified-top-card__job-title",
		"h2.t-24.t-bold",
		".job-details-jobs-unified-top-card__job-title",
		"h1.topcard__title",
	}
	CompanyCandidates = []string{
		".jobs-unified-top-card__company-name a",
		".jobs-unified-top-card__company-name",
		".job-details-jobs-unified-top-card__company-name",
		"a.topcard__org-name-link",
	}
	LocationCandidates = []string{
		".jobs-unified-top-card__bullet",
		".job-details-jobs-unified-top-card__primary-description-container span",
		".topcard__flavor--bullet",
	}
	PostedTimeCandidates = []string{
		".jobs-unified-top-card__posted-date",
		"span.posted-time-ago__text",
		"[data-test-posted-date]",
		".job-details-jobs-unified-top-card__primary-description-container",
	}
	DescriptionCandidates = []string{
		"div.jobs-description__content",
		"div.show-more-less-html__markup",
		".jobs-description-content__text",
		"[data-test-description-text]",
	}
	NextPageCandidates = []string{
		`button[aria-label="Next"]`,
		".artdeco-pagination__button--next",
	}
)

// Defaults is the map built from the known-good candidates alone, with the
// card container left unresolved.
func Defaults() Map {
	return Map{
		Title:           JoinList(TitleCandidates...),
		Company:         JoinList(CompanyCandidates...),
		Location:        JoinList(LocationCandidates...),
		PostedTime:      JoinList(PostedTimeCandidates...),
		Description:     JoinList(DescriptionCandidates...),
		NextPageControl: JoinList(NextPageCandidates...),
	}
}

// JoinList builds a selector list, dropping blanks and duplicates while
// keeping the first occurrence's position.
func JoinList(selectors ...string) string {
	seen := make(map[string]bool, len(selectors))
	var out []string
	for _, s := range selectors {
		for _, part := range SplitList(s) {
			if !seen[part] {
				seen[part] = true
				out = append(out, part)
			}
		}
	}
	return strings.Join(out, ", ")
}

// SplitList splits a selector list on its top-level commas. Commas inside
// quotes, brackets or parentheses belong to the selector.
func SplitList(list string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	flush := func(end int) {
		if part := strings.TrimSpace(list[start:end]); part != "" {
			out = append(out, part)
		}
	}
	for i, r := range list {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(list))
	return out
}

// queryCards returns the live matches of sel, treating a selector the page
// rejects as matching nothing.
func queryCards(page browser.Page, sel string) []browser.Element {
	if sel == "" {
		return nil
	}
	cards, err := page.QueryAll(sel)
	if err != nil {
		return nil
	}
	return cards
}
