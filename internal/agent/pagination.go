package agent

import (
	"fmt"

	"go-jobsearch-agent/internal/selector"
)

// ShouldContinue reports whether another results page should be visited.
func ShouldContinue(pageNumber, maxPages, currentCount, maxResults int) bool {
	return pageNumber < maxPages && currentCount < maxResults
}

// nextPageCandidates lists the controls that may lead to page current+1,
// most specific first.
func nextPageCandidates(m selector.Map, current int) []string {
	next := current + 1
	return selector.SplitList(selector.JoinList(
		m.NextPageControl,
		fmt.Sprintf(`button[aria-label="Page %d"]`, next),
		`button[aria-label="Next"]`,
		fmt.Sprintf(`li[data-test-pagination-page-btn="%d"] button`, next),
		".artdeco-pagination__button--next",
	))
}
