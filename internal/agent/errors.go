package agent

import "errors"

var (
	// ErrStructuralResolution means no selector set matched the page. It
	// counts towards the consecutive-error ceiling.
	ErrStructuralResolution = errors.New("structural resolution failed")
	// ErrCardExtraction means a single card could not be read. The card is
	// skipped and the session carries on.
	ErrCardExtraction = errors.New("card extraction failed")
	// ErrPageNotReady means no listing container appeared in time.
	ErrPageNotReady = errors.New("results list did not appear")
)
