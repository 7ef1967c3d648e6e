package paper

import (
	"errors"
	"fmt"
)

// ErrMalformed indicates a source entry is missing a mandatory field. Such
// records are dropped and reported; they never abort a run.
var ErrMalformed = errors.New("malformed record")

// RecordError describes why a raw entry could not become a Paper.
type RecordError struct {
	Source string // Database label of the adapter, when known
	ID     string // Provider identifier of the entry, when known
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Field, e.Reason)
	if e.ID != "" {
		msg = fmt.Sprintf("entry %s: %s", e.ID, msg)
	}
	if e.Source != "" {
		msg = e.Source + " " + msg
	}
	return msg
}

func (e *RecordError) Unwrap() error {
	return ErrMalformed
}

// IsMalformed reports whether err marks a dropped record.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
