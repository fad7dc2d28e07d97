package core

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication failure
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidRequest
	KindInvalidOrExpiredChallenge
	KindInvalidSignature
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindInvalidOrExpiredChallenge:
		return "invalid_or_expired_challenge"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error is a classified failure. Two Errors match under errors.Is when their kinds match.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidRequest            = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrInvalidOrExpiredChallenge = &Error{Kind: KindInvalidOrExpiredChallenge, Message: "invalid or expired challenge"}
	ErrInvalidSignature          = &Error{Kind: KindInvalidSignature, Message: "invalid signature"}
	ErrUnauthenticated           = &Error{Kind: KindUnauthenticated, Message: "unauthenticated"}

	// Adapter level errors, wrapped into a Kind by the service
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalidated  = errors.New("token has been invalidated")
	ErrInvalidToken      = errors.New("invalid token")
)

func InvalidRequest(msg string) error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func InvalidOrExpiredChallenge(cause error) error {
	return &Error{Kind: KindInvalidOrExpiredChallenge, Message: "invalid or expired challenge", Err: cause}
}

func InvalidSignature(cause error) error {
	return &Error{Kind: KindInvalidSignature, Message: "invalid signature", Err: cause}
}

func Unauthenticated(cause error) error {
	return &Error{Kind: KindUnauthenticated, Message: "unauthenticated", Err: cause}
}

func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// KindOf returns the Kind carried by err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
