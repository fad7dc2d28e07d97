package walletauth

import (
	"fmt"
	"net/http"

	"github.com/sparksclub/walletauth/core"
)

const (
	msgInvalidNonce     = "Invalid or expired nonce"
	msgInvalidSignature = "Invalid signature"
)

// APIError is a non-2xx answer from the auth service. It unwraps to a *core.Error
// so callers can use core.KindOf or errors.Is with the core sentinels.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth service returned %d: %s", e.StatusCode, e.Message)
}

// Kind classifies the failure from the status code and the error body
func (e *APIError) Kind() core.Kind {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return core.KindInvalidRequest
	case http.StatusUnauthorized:
		switch e.Message {
		case msgInvalidNonce:
			return core.KindInvalidOrExpiredChallenge
		case msgInvalidSignature:
			return core.KindInvalidSignature
		}
		return core.KindUnauthenticated
	default:
		return core.KindInternal
	}
}

func (e *APIError) Unwrap() error {
	return &core.Error{Kind: e.Kind(), Message: e.Message}
}
