package walletauth

import (
	"context"

	"github.com/sparksclub/walletauth/core"
)

// Client represents the public interface for signing in to the auth service with a wallet
type Client interface {
	// RequestNonce asks the service for a challenge bound to address
	RequestNonce(ctx context.Context, address string, kind core.WalletKind) (*Nonce, error)

	// Verify submits a signed challenge and returns the session on success
	Verify(ctx context.Context, req VerifyRequest) (*LoginResult, error)

	// SignIn runs the full handshake for wallet
	SignIn(ctx context.Context, wallet Wallet) (*LoginResult, error)

	// Me returns the user behind a session token
	Me(ctx context.Context, token string) (*core.PublicUser, error)

	// Logout revokes a session token
	Logout(ctx context.Context, token string) error
}

// Wallet is the signing capability of a browser wallet or a local keypair.
// SignMessage returns the raw 64-byte Ed25519 signature over message.
type Wallet interface {
	Kind() core.WalletKind
	Address() string
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}
