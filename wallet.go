package walletauth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/sparksclub/walletauth/adapters/signature"
	"github.com/sparksclub/walletauth/core"
)

// LocalWallet signs with an in-process Ed25519 keypair
type LocalWallet struct {
	kind    core.WalletKind
	key     ed25519.PrivateKey
	address string
}

// NewLocalWallet generates a fresh keypair
func NewLocalWallet(kind core.WalletKind) (*LocalWallet, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate wallet key: %w", err)
	}
	return newLocalWallet(kind, key), nil
}

// LocalWalletFromSeed derives the keypair from a 32-byte seed
func LocalWalletFromSeed(kind core.WalletKind, seed []byte) (*LocalWallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return newLocalWallet(kind, ed25519.NewKeyFromSeed(seed)), nil
}

func newLocalWallet(kind core.WalletKind, key ed25519.PrivateKey) *LocalWallet {
	return &LocalWallet{
		kind:    kind,
		key:     key,
		address: signature.AddressFromPublicKey(key.Public().(ed25519.PublicKey)),
	}
}

func (w *LocalWallet) Kind() core.WalletKind { return w.kind }

func (w *LocalWallet) Address() string { return w.address }

func (w *LocalWallet) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(w.key, message), nil
}
