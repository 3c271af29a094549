// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Token formats accepted by NewIdentifierGenerator.
const (
	TokenFormatUUID = "uuid"
	TokenFormatHex  = "hex"
)

// HexTokenBytes is the number of random bytes in a hex token (64 hex chars).
const HexTokenBytes = 32

// IdentifierGenerator produces unguessable opaque strings used as session ids
// and reset tokens.
type IdentifierGenerator interface {
	NewIdentifier() (string, error)
}

// NewIdentifierGenerator returns the generator for the named token format.
// An empty name selects UUIDs.
func NewIdentifierGenerator(format string) (IdentifierGenerator, error) {
	switch format {
	case "", TokenFormatUUID:
		return UUIDGenerator{}, nil
	case TokenFormatHex:
		return HexTokenGenerator{}, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("format", format).
			Errorf("unknown token format %q", format)
	}
}

// UUIDGenerator returns random (version 4) UUID strings.
type UUIDGenerator struct{}

// NewIdentifier returns a fresh random UUID.
func (UUIDGenerator) NewIdentifier() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_FAILED").With("format", TokenFormatUUID).Wrap(err)
	}
	return id.String(), nil
}

// HexTokenGenerator returns HexTokenBytes of crypto/rand output, hex encoded.
type HexTokenGenerator struct{}

// NewIdentifier returns a fresh random hex token.
func (HexTokenGenerator) NewIdentifier() (string, error) {
	b := make([]byte, HexTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("AUTH_TOKEN_FAILED").With("format", TokenFormatHex).Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// IdentifierFunc adapts a function to IdentifierGenerator.
type IdentifierFunc func() (string, error)

// NewIdentifier calls f.
func (f IdentifierFunc) NewIdentifier() (string, error) {
	return f()
}
