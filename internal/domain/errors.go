package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can render a precise message.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindPermissionDenied
	KindExpired
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindExpired:
		return "expired"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error carries a Kind and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, ErrNotFound) works
// for every not-found failure regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation       = &Error{Kind: KindValidation, Msg: "invalid request"}
	ErrNotFound         = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied, Msg: "permission denied"}
	ErrExpired          = &Error{Kind: KindExpired, Msg: "expired"}
	ErrStorage          = &Error{Kind: KindStorage, Msg: "storage failure"}
)

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func PermissionDeniedf(format string, args ...any) error {
	return &Error{Kind: KindPermissionDenied, Msg: fmt.Sprintf(format, args...)}
}

func Expiredf(format string, args ...any) error {
	return &Error{Kind: KindExpired, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure. A nil cause yields nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindStorage, Msg: op, Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
