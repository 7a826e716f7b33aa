package domain

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	dErrors "flightsurety/pkg/domain-errors"
)

// Address identifies a ledger account (administrator, airline, passenger or
// oracle). It is always the lower-case, 0x-prefixed hex form of 20 bytes.
type Address string

// ZeroAddress is never a valid caller.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalizes an account identifier.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be valid UTF-8")
	}
	raw, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if !ok || len(raw) != 40 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be 0x followed by 40 hex characters")
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address must be hex encoded")
	}
	addr := Address("0x" + raw)
	if addr == ZeroAddress {
		return "", dErrors.New(dErrors.CodeInvalidInput, "zero address is not allowed")
	}
	return addr, nil
}

// MustAddress panics on invalid input. Intended for constants and tests.
func MustAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// Bytes returns the raw 20 byte form.
func (a Address) Bytes() []byte {
	b, _ := hex.DecodeString(strings.TrimPrefix(string(a), "0x"))
	return b
}

func (a Address) String() string {
	return string(a)
}

// IsNil reports whether the address is unset.
func (a Address) IsNil() bool {
	return a == ""
}
