// Package identity derives the local node's mesh peer-id from a curve25519
// keypair. The keypair is never used to encrypt or sign mesh traffic (the
// mesh carries no authenticated identity or encrypted payloads); it exists
// solely as a source of stable, locally-generated entropy to derive the
// peer-id from.
package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/curve25519"
)

// peerIDHexLen is the fixed length of a derived peer-id: 16 hex characters.
const peerIDHexLen = 16

// ErrInvalidPeerID is returned by ValidatePeerID when a candidate string is
// not exactly 16 lowercase/uppercase hex characters.
var ErrInvalidPeerID = errors.New("identity: invalid peer id")

// Identity holds the local keypair and its derived peer-id.
type Identity struct {
	PublicKey  [32]byte
	privateKey [32]byte
	PeerID     string
}

// New generates a fresh X25519 keypair and derives a peer-id by hashing the
// public key and truncating to 16 hex characters.
func New() (*Identity, error) {
	var priv [32]byte
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return nil, err
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64

	var pub [32]byte
	curve25519.ScalarBaseMult(&pub, &priv)

	return &Identity{
		PublicKey:  pub,
		privateKey: priv,
		PeerID:     derivePeerID(pub[:]),
	}, nil
}

// derivePeerID hashes source and truncates the hex digest to the 16-hex-char
// peer-id space.
func derivePeerID(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])[:peerIDHexLen]
}

// ValidatePeerID reports whether candidate is a well-formed peer-id: exactly
// 16 characters, all hex.
func ValidatePeerID(candidate string) error {
	if len(candidate) != peerIDHexLen {
		return ErrInvalidPeerID
	}
	if _, err := hex.DecodeString(candidate); err != nil {
		return ErrInvalidPeerID
	}
	return nil
}
