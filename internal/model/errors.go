package model

import "errors"

var (
	ErrMalformedSponsorship = errors.New("malformed sponsorship")
	ErrMalformedIssue       = errors.New("malformed issue")
)
