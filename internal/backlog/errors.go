package backlog

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStrategy = errors.New("unknown sort strategy")
	ErrInvalidStrategy = errors.New("invalid sort strategy")
)

// SourceError reports that an issue source failed to return data
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to fetch issues from %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
