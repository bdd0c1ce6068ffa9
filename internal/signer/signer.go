// Package signer attests redacted exports. Each export is signed with a
// secp256k1 key so a recipient can check which service instance produced a
// redacted file and that the bytes were not altered afterwards.
package signer

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces recoverable ECDSA signatures over secp256k1.
type Signer struct {
	key     *ecdsa.PrivateKey
	address string
}

// New creates a Signer from a hex-encoded private key (0x prefix optional).
func New(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("signer: invalid hex key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("signer: key must be 32 bytes, got %d", len(raw))
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}, nil
}

// Address is the hex address derived from the signing key.
func (s *Signer) Address() string { return s.address }

// Attestation binds a payload digest to a document fingerprint and a time.
type Attestation struct {
	Digest    string `json:"digest"`    // hex SHA-256 of the payload
	Document  string `json:"document"`  // fingerprint of the source text
	Timestamp int64  `json:"timestamp"` // unix nanoseconds
	Signature string `json:"signature"` // base64 r||s||v
	Signer    string `json:"signer"`    // address of the signing key
}

// Digest returns the hex SHA-256 of payload.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Attest signs payload for document.
//
// Signing scheme:
//  1. digest = hex(SHA256(payload))
//  2. input = digest + str(timestamp_ns) + document
//  3. sign SHA256(input) with deterministic ECDSA (RFC 6979)
//  4. encode r(32) || s(32) || v(1) as base64
func (s *Signer) Attest(payload []byte, document string) (Attestation, error) {
	a := Attestation{
		Digest:    Digest(payload),
		Document:  document,
		Timestamp: time.Now().UnixNano(),
		Signer:    s.address,
	}
	sig, err := crypto.Sign(messageHash(a), s.key)
	if err != nil {
		return Attestation{}, fmt.Errorf("signer: sign: %w", err)
	}
	a.Signature = base64.StdEncoding.EncodeToString(sig)
	return a, nil
}

// Verify checks that a was produced for payload by the key behind a.Signer.
func Verify(payload []byte, a Attestation) error {
	if got := Digest(payload); got != a.Digest {
		return fmt.Errorf("signer: digest mismatch: %s != %s", got, a.Digest)
	}
	sig, err := base64.StdEncoding.DecodeString(a.Signature)
	if err != nil {
		return fmt.Errorf("signer: decode signature: %w", err)
	}
	pub, err := crypto.SigToPub(messageHash(a), sig)
	if err != nil {
		return fmt.Errorf("signer: recover key: %w", err)
	}
	if addr := crypto.PubkeyToAddress(*pub).Hex(); addr != a.Signer {
		return fmt.Errorf("signer: signed by %s, not %s", addr, a.Signer)
	}
	return nil
}

func messageHash(a Attestation) []byte {
	input := a.Digest + strconv.FormatInt(a.Timestamp, 10) + a.Document
	sum := sha256.Sum256([]byte(input))
	return sum[:]
}
