package owm

import "errors"

// Kind classifies a failed API call so callers can select user-facing
// messaging without string matching.
type Kind int

const (
	KindNetwork Kind = iota
	KindNotFound
	KindUnauthorized
	KindRateLimited
	KindBadRequest
)

type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the classification of err, or KindNetwork if err did
// not originate from this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindNetwork
}
