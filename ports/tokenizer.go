package ports

import "github.com/sparksclub/walletauth/core"

// Tokenizer converts between sessions and signed credentials
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}

// SignatureVerifier checks that signature was produced over message by the key behind address
type SignatureVerifier interface {
	Verify(address string, message, signature []byte) error
}
