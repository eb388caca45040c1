package session

import (
	"net/url"
	"strings"

	"go-jobsearch-agent/internal/models"
)

const searchBaseURL = "https://www.linkedin.com/jobs/search/?"

var (
	experienceCodes = map[models.ExperienceLevel]string{
		models.ExperienceInternship: "1",
		models.ExperienceEntry:      "2",
		models.ExperienceMid:        "3,4",
		models.ExperienceSenior:     "5,6",
	}
	postedCodes = map[models.PostedWithin]string{
		models.Posted24h:   "r86400",
		models.PostedWeek:  "r604800",
		models.PostedMonth: "r2592000",
	}
	workModeCodes = map[models.WorkMode]string{
		models.WorkRemote: "2",
		models.WorkOnsite: "1",
		models.WorkHybrid: "3",
	}
)

const (
	defaultExperienceCode = "2"
	defaultPostedCode     = "r86400"
	defaultWorkModeCode   = "2"
)

// BuildSearchURL maps q onto LinkedIn's search parameters. Unknown filter
// values fall back to entry level, last 24 hours and remote.
func BuildSearchURL(q models.SearchQuery) string {
	params := []string{
		"keywords=" + escape(q.Keywords),
		"location=" + escape(q.Location),
		"f_E=" + codeOr(experienceCodes, q.ExperienceLevel, defaultExperienceCode),
		"f_TPR=" + codeOr(postedCodes, q.PostedWithin, defaultPostedCode),
		"f_WT=" + codeOr(workModeCodes, q.WorkMode, defaultWorkModeCode),
	}
	return searchBaseURL + strings.Join(params, "&")
}

func codeOr[K comparable](table map[K]string, key K, fallback string) string {
	if code, ok := table[key]; ok {
		return code
	}
	return fallback
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(strings.TrimSpace(s)), "+", "%20")
}
