package marker

import (
	"errors"
	"fmt"
)

var (
	ErrMalformed       = errors.New("malformed record")
	ErrUnknownType     = errors.New("unknown message type")
	ErrUnknownID       = errors.New("unknown id")
	ErrNoMap           = errors.New("map not initialized")
	ErrInvalidPosition = errors.New("invalid position")
	ErrNoIcon          = errors.New("no icon for cause code")
)

// RecordError ties a failure to the tag of the record that caused it.
type RecordError struct {
	Tag string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record: %v", e.Tag, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func recordErr(tag string, err error) error {
	return &RecordError{Tag: tag, Err: err}
}

// Reason returns a short label for err, used as a metric label and log field.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrUnknownID):
		return "unknown_id"
	case errors.Is(err, ErrNoMap):
		return "no_map"
	case errors.Is(err, ErrInvalidPosition):
		return "invalid_position"
	default:
		return "surface"
	}
}
