package catalog

import (
	"errors"
	"fmt"
)

// ErrIntegrity marks catalog data that cannot be used for evaluation.
var ErrIntegrity = errors.New("catalog integrity")

// IntegrityError describes one integrity violation.
type IntegrityError struct {
	Kind   string
	Ref    string
	Detail string
}

func (e *IntegrityError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("catalog integrity: %s %s", e.Kind, e.Ref)
	}
	return fmt.Sprintf("catalog integrity: %s %s: %s", e.Kind, e.Ref, e.Detail)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

func integrity(kind, ref, format string, args ...interface{}) error {
	return &IntegrityError{Kind: kind, Ref: ref, Detail: fmt.Sprintf(format, args...)}
}
