package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxDescriptionRunes bounds Job.Description, counted in code points.
const MaxDescriptionRunes = 2000

// Job is one extracted job posting.
type Job struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	Location       string `json:"location,omitempty"`
	Salary         string `json:"salary,omitempty"`
	PostedTimeText string `json:"posted_time,omitempty"`
	Description    string `json:"description"`
	SourceURL      string `json:"url"`
	CompanyInitial string `json:"logo_initial"`
}

// Valid reports whether the job may be admitted into a result set.
func (j Job) Valid() bool {
	return j.ID != "" && strings.TrimSpace(j.Title) != "" && strings.TrimSpace(j.Company) != ""
}

// CompanyInitialOf returns the uppercase first character of company, or "?".
func CompanyInitialOf(company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return "?"
	}
	r, _ := utf8.DecodeRuneInString(company)
	return string(unicode.ToUpper(r))
}

// TruncateRunes cuts s to at most n code points.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
