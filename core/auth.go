package core

import (
	"strings"
	"time"
)

// WalletKind is the declared family of the browser wallet that signed a challenge.
// It is recorded for auditing only and never changes how a signature is checked.
type WalletKind string

const (
	WalletPhantom  WalletKind = "phantom"
	WalletBackpack WalletKind = "backpack"
	WalletSolflare WalletKind = "solflare"
	WalletBrave    WalletKind = "brave"
)

// WalletKinds lists every supported wallet kind
var WalletKinds = []WalletKind{WalletPhantom, WalletBackpack, WalletSolflare, WalletBrave}

// ParseWalletKind maps a wire value onto a supported wallet kind
func ParseWalletKind(s string) (WalletKind, error) {
	kind := WalletKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range WalletKinds {
		if k == kind {
			return k, nil
		}
	}
	return "", InvalidRequest("unsupported wallet type")
}

// NormalizeAddress returns the store key for a claimed wallet address
func NormalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// Challenge represents an authentication challenge
type Challenge struct {
	ID         string     // Unique identifier for the challenge
	Address    string     // Wallet address the challenge is bound to
	Message    string     // Exact text the wallet must sign
	Nonce      string     // Random part embedded in Message, kept for tracing
	WalletKind WalletKind // Declared wallet family
	IssuedAt   time.Time  // When the challenge was created
	ExpiresAt  time.Time  // When the challenge expires
}

// Expired reports whether the challenge can no longer be used at now
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// User is the account record resolved for a wallet address
type User struct {
	ID            string
	WalletAddress string
	WalletKind    WalletKind
	Username      string
	Role          string
	CreatedAt     time.Time
	LastLoginAt   time.Time
}

// PublicUser is the client-facing form of a User
type PublicUser struct {
	ID            string     `json:"id"`
	WalletAddress string     `json:"walletAddress"`
	WalletType    WalletKind `json:"walletType"`
	Username      string     `json:"username,omitempty"`
	Role          string     `json:"role"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Public strips internal-only fields
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		WalletAddress: u.WalletAddress,
		WalletType:    u.WalletKind,
		Username:      u.Username,
		Role:          u.Role,
		CreatedAt:     u.CreatedAt,
	}
}

// Session represents an authenticated user session
type Session struct {
	ID         string     // Unique session identifier, used as the token id
	UserID     string     // Owner of the session
	Address    string     // Wallet address the session was proven for
	WalletKind WalletKind // Wallet kind declared at login
	IssuedAt   time.Time  // When the session was created
	ExpiresAt  time.Time  // When the session expires
	Token      string     // Signed credential, empty until minted
	User       *User      // Resolved identity, nil when parsed from a token
}
