// Package extract reads a job record out of the detail panel that opens
// when a card is activated.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"go-jobsearch-agent/internal/ai"
	"go-jobsearch-agent/internal/browser"
	"go-jobsearch-agent/internal/filter"
	"go-jobsearch-agent/internal/logger"
	"go-jobsearch-agent/internal/models"
	"go-jobsearch-agent/internal/selector"
)

// minPanelChars is the smallest panel markup worth sending for inference.
const minPanelChars = 100

var (
	viewIDRegex       = regexp.MustCompile(`/view/(\d+)`)
	currentJobIDRegex = regexp.MustCompile(`currentJobId=(\d+)`)
	numericRegex      = regexp.MustCompile(`^\d+$`)
)

// DetailRootCandidates locate the detail panel. Field selectors are
// evaluated inside it so card-level selectors cannot match the list.
var DetailRootCandidates = []string{
	".jobs-search__job-details--container",
	".jobs-details",
	".job-view-layout",
	".scaffold-layout__detail",
}

const panelScript = `() => {
	const panel = document.querySelector('.jobs-unified-top-card, .job-details-jobs-unified-top-card');
	return panel ? panel.outerHTML : '';
}`

// FieldInferrer reads job fields from detail panel markup. *ai.Client
// implements it.
type FieldInferrer interface {
	ExtractFields(ctx context.Context, html string) (*ai.JobFields, error)
}

type Extractor struct {
	inferrer FieldInferrer
	log      *zap.SugaredLogger
}

// New returns an extractor. inferrer may be nil, which disables the
// inference fallback.
func New(inferrer FieldInferrer, log *zap.SugaredLogger) *Extractor {
	return &Extractor{inferrer: inferrer, log: logger.OrNop(log)}
}

type querier interface {
	Query(selector string) (browser.Element, error)
}

// Extract returns the record shown in the detail panel, or nil when no
// title or company could be found.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, idHint string, sel selector.Map) *models.Job {
	root := e.detailRoot(page)

	job := models.Job{
		Title:          e.firstText(root, sel.Title, nil),
		Company:        e.firstText(root, sel.Company, nil),
		Location:       e.firstText(root, sel.Location, nil),
		PostedTimeText: e.firstText(root, sel.PostedTime, filter.LooksLikePostedTime),
		Description:    models.TruncateRunes(e.rawText(root, sel.Description), models.MaxDescriptionRunes),
	}

	if (job.Title == "" || job.Company == "") && e.inferrer != nil {
		e.infer(ctx, page, &job)
	}
	if job.Title == "" || job.Company == "" {
		return nil
	}

	pageURL := page.URL()
	job.ID = DeriveID(idHint, pageURL, job.Title, job.Company)
	job.SourceURL = sourceURL(job.ID, pageURL)
	job.CompanyInitial = models.CompanyInitialOf(job.Company)
	return &job
}

func (e *Extractor) detailRoot(page browser.Page) querier {
	for _, c := range DetailRootCandidates {
		if el, err := page.Query(c); err == nil && el != nil {
			return el
		}
	}
	return page
}

// firstText returns the cleaned text of the first entry in list whose
// element exists, has text and passes accept.
func (e *Extractor) firstText(q querier, list string, accept func(string) bool) string {
	for _, s := range selector.SplitList(list) {
		text := filter.CleanText(e.textOf(q, s))
		if text == "" || (accept != nil && !accept(text)) {
			continue
		}
		return text
	}
	return ""
}

// rawText is firstText that keeps the line structure of the text.
func (e *Extractor) rawText(q querier, list string) string {
	for _, s := range selector.SplitList(list) {
		if text := strings.TrimSpace(e.textOf(q, s)); text != "" {
			return text
		}
	}
	return ""
}

func (e *Extractor) textOf(q querier, sel string) string {
	el, err := q.Query(sel)
	if err != nil {
		e.log.Debugf("query %q: %v", sel, err)
		return ""
	}
	if el == nil {
		return ""
	}
	text, err := el.InnerText()
	if err != nil {
		e.log.Debugf("inner text %q: %v", sel, err)
		return ""
	}
	return text
}

// infer fills missing fields from the inference capability. Failures leave
// the record as it was.
func (e *Extractor) infer(ctx context.Context, page browser.Page, job *models.Job) {
	raw, err := page.Evaluate(panelScript)
	if err != nil {
		e.log.Debugf("read detail panel: %v", err)
		return
	}
	panel, _ := raw.(string)
	if len(panel) <= minPanelChars {
		return
	}
	fields, err := e.inferrer.ExtractFields(ctx, panel)
	if err != nil {
		e.log.Warnf("⚠️ Field inference failed: %v", err)
		return
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = filter.CleanText(v)
		}
	}
	fill(&job.Title, fields.Title)
	fill(&job.Company, fields.Company)
	fill(&job.Location, fields.Location)
	if filter.LooksLikePostedTime(fields.PostedTime) {
		fill(&job.PostedTimeText, fields.PostedTime)
	}
}

// DeriveID picks, in order: the card's hint, the numeric job ID in the detail
// URL, and a hash of the normalised title and company. The hash is only as
// unique as title+company, so two postings sharing both collide.
func DeriveID(hint, pageURL, title, company string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		return hint
	}
	for _, re := range []*regexp.Regexp{viewIDRegex, currentJobIDRegex} {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			return m[1]
		}
	}
	h := xxhash.Sum64String(filter.Normalize(title) + "\x00" + filter.Normalize(company))
	return fmt.Sprintf("h%016x", h)
}

func sourceURL(id, pageURL string) string {
	if numericRegex.MatchString(id) {
		return "https://www.linkedin.com/jobs/view/" + id + "/"
	}
	return pageURL
}
