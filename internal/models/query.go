package models

import (
	"errors"
	"strings"
)

type ExperienceLevel string

const (
	ExperienceInternship ExperienceLevel = "internship"
	ExperienceEntry      ExperienceLevel = "entry"
	ExperienceMid        ExperienceLevel = "mid"
	ExperienceSenior     ExperienceLevel = "senior"
)

type PostedWithin string

const (
	Posted24h   PostedWithin = "24h"
	PostedWeek  PostedWithin = "week"
	PostedMonth PostedWithin = "month"
)

type WorkMode string

const (
	WorkRemote WorkMode = "remote"
	WorkOnsite WorkMode = "onsite"
	WorkHybrid WorkMode = "hybrid"
)

// SearchQuery describes one job search. It is passed by value so a running
// session cannot observe later changes made by the caller.
type SearchQuery struct {
	Keywords        string          `json:"keywords"`
	Location        string          `json:"location"`
	ExperienceLevel ExperienceLevel `json:"experience"`
	PostedWithin    PostedWithin    `json:"posted_time"`
	WorkMode        WorkMode        `json:"job_type"`
	MaxResults      int             `json:"max_results"`
	MaxPages        int             `json:"max_pages"`
}

var (
	ErrMissingKeywords = errors.New("keywords are required")
	ErrMissingLocation = errors.New("location is required")
	ErrInvalidLimits   = errors.New("max_results and max_pages must be positive")
)

func (q SearchQuery) Validate() error {
	if strings.TrimSpace(q.Keywords) == "" {
		return ErrMissingKeywords
	}
	if strings.TrimSpace(q.Location) == "" {
		return ErrMissingLocation
	}
	if q.MaxResults < 1 || q.MaxPages < 1 {
		return ErrInvalidLimits
	}
	return nil
}
