package resolve

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Error kinds. Callers test for them with errors.Is.
var (
	// ErrInputRejected marks an entry with no usable identity.
	ErrInputRejected = eris.New("resolve: input rejected")
	// ErrCatalogUnavailable marks a failed catalog read or write.
	ErrCatalogUnavailable = eris.New("resolve: catalog unavailable")
	// ErrJudgeUnavailable marks a judge transport or parse failure.
	ErrJudgeUnavailable = eris.New("resolve: judge unavailable")
	// ErrRaceLost marks a create that conflicted but whose winner could
	// not be re-read.
	ErrRaceLost = eris.New("resolve: lost insert race")
)

// kindError tags err with one of the kinds above.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// WithKind tags err with kind, one of the sentinels above.
func WithKind(kind, err error) error {
	return &kindError{kind: kind, err: err}
}

// Kind names the kind of err for reporting: "input_rejected",
// "catalog_unavailable", "judge_unavailable", "race_lost", or "unknown".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInputRejected):
		return "input_rejected"
	case errors.Is(err, ErrCatalogUnavailable):
		return "catalog_unavailable"
	case errors.Is(err, ErrJudgeUnavailable):
		return "judge_unavailable"
	case errors.Is(err, ErrRaceLost):
		return "race_lost"
	default:
		return "unknown"
	}
}
