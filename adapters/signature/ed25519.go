// Package signature verifies wallet signatures over challenge messages.
package signature

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/sparksclub/walletauth/ports"
)

// Ed25519Verifier checks signatures from Solana-style wallets, whose address is the
// base58 encoding of the Ed25519 public key.
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new verifier
func NewEd25519Verifier() ports.SignatureVerifier {
	return Ed25519Verifier{}
}

// Verify checks signature over message under the key encoded in address
func (Ed25519Verifier) Verify(address string, message, signature []byte) error {
	pub, err := PublicKeyFromAddress(address)
	if err != nil {
		return err
	}

	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("signature must be %d bytes, got %d", ed25519.SignatureSize, len(signature))
	}

	if !ed25519.Verify(pub, message, signature) {
		return fmt.Errorf("signature does not match public key")
	}
	return nil
}

// PublicKeyFromAddress decodes a base58 wallet address into an Ed25519 public key
func PublicKeyFromAddress(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("failed to decode address: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("address must decode to %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}

// AddressFromPublicKey encodes an Ed25519 public key as a wallet address
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}
