package tokenizer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/sparksclub/walletauth/core"
)

// SessionClaims combines standard claims with the wallet the session was proven for
type SessionClaims struct {
	jwt.RegisteredClaims
	Address    string          `json:"addr"`
	WalletKind core.WalletKind `json:"wallet"`
}
