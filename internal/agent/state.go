package agent

import (
	"go-jobsearch-agent/internal/browser"
	"go-jobsearch-agent/internal/dedup"
	"go-jobsearch-agent/internal/models"
	"go-jobsearch-agent/internal/selector"
)

// State is a node of the extraction state machine.
type State string

const (
	StateAnalyzePage      State = "analyze_page"
	StateResolveSelectors State = "resolve_selectors"
	StateBrowseListings   State = "browse_listings"
	StateValidateRecords  State = "validate_records"
	StatePaginate         State = "paginate"
	StateDone             State = "done"
)

// SessionState is the working memory of one search. Only the machine's
// transitions mutate it; the page is borrowed from the session controller.
type SessionState struct {
	ID    string
	Query models.SearchQuery
	Page  browser.Page

	State             State
	PageNumber        int
	Records           *dedup.Store
	ConsecutiveErrors int
	Selectors         selector.Map

	// Transitions is the number of transitions taken so far.
	Transitions int

	snapshot     string
	cards        []browser.Element
	cursor       int
	pageAccepted int
	visited      map[State]int
}

func NewSessionState(id string, page browser.Page, q models.SearchQuery) *SessionState {
	return &SessionState{
		ID:         id,
		Query:      q,
		Page:       page,
		State:      StateAnalyzePage,
		PageNumber: 1,
		Records:    dedup.NewStore(q.MaxResults),
		visited:    make(map[State]int),
	}
}

// Visits reports how many times the machine entered s.
func (st *SessionState) Visits(s State) int {
	return st.visited[s]
}

// resetPage forgets everything tied to the page that was just left.
func (st *SessionState) resetPage() {
	st.Selectors = selector.Map{}
	st.snapshot = ""
	st.cards = nil
	st.cursor = 0
	st.pageAccepted = 0
}
