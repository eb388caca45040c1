package ai

import (
	"context"
	"fmt"
)

// SelectorSuggestion is the model's guess at the CSS selectors of a results
// page. Any field may be empty.
type SelectorSuggestion struct {
	CardContainer string   `json:"job_card_container"`
	Title         string   `json:"job_title"`
	Company       string   `json:"company_name"`
	Location      string   `json:"location"`
	NextPage      string   `json:"next_page_button"`
	Confidence    *float64 `json:"confidence,omitempty"`
}

// JobFields are the fields the model read from a job detail panel.
type JobFields struct {
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	PostedTime string `json:"posted_time"`
}

const selectorSystemPrompt = "You are a web scraping expert. Analyze LinkedIn HTML and provide accurate CSS selectors. Respond only with valid JSON."

const selectorUserPrompt = `Analyze this LinkedIn Jobs page HTML and identify CSS selectors for job extraction.

Find selectors for:
1. job_card_container: The <li> or <div> containing each job card (usually has data-occludable-job-id attribute)
2. job_title: The job title element inside a card
3. company_name: The company name element
4. location: Job location element
5. next_page_button: Pagination button

Important LinkedIn patterns to look for:
- li[data-occludable-job-id] - job card containers
- .jobs-search-results__list-item - job list items
- .job-card-container - newer card container
- h3 or a elements for titles
- [data-job-id] attributes

HTML SAMPLE:
` + "```html" + `
%s
` + "```" + `

Respond with ONLY valid JSON:
{
    "job_card_container": "li[data-occludable-job-id], .jobs-search-results__list-item",
    "job_title": "selector",
    "company_name": "selector",
    "location": "selector",
    "next_page_button": "selector",
    "confidence": 0.0-1.0
}`

const fieldsSystemPrompt = "Extract job data from HTML. Return only valid JSON."

const fieldsUserPrompt = `Extract job information from this LinkedIn job detail HTML:

%s

Return JSON:
{"title": "...", "company": "...", "location": "...", "posted_time": "..."}`

// SuggestSelectors asks the model for the selectors of the page whose markup
// is html. Only the first MaxPageChars characters are sent.
func (c *Client) SuggestSelectors(ctx context.Context, html string) (*SelectorSuggestion, error) {
	var s SelectorSuggestion
	if err := c.complete(ctx, selectorSystemPrompt, fmt.Sprintf(selectorUserPrompt, truncateRunes(html, MaxPageChars)), &s); err != nil {
		return nil, fmt.Errorf("suggest selectors: %w", err)
	}
	if s.Confidence != nil && (*s.Confidence < 0 || *s.Confidence > 1) {
		s.Confidence = nil
	}
	return &s, nil
}

// ExtractFields asks the model to read the job fields out of a detail panel.
// Only the first MaxPanelChars characters are sent.
func (c *Client) ExtractFields(ctx context.Context, html string) (*JobFields, error) {
	var f JobFields
	if err := c.complete(ctx, fieldsSystemPrompt, fmt.Sprintf(fieldsUserPrompt, truncateRunes(html, MaxPanelChars)), &f); err != nil {
		return nil, fmt.Errorf("extract fields: %w", err)
	}
	return &f, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
