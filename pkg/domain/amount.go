package domain

import (
	"math/big"
	"strings"

	dErrors "flightsurety/pkg/domain-errors"
)

// WeiPerEther is the fixed-point scale of ledger amounts.
var WeiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Ether returns n ether expressed in wei.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), WeiPerEther)
}

// Wei copies n into a fresh big.Int.
func Wei(n int64) *big.Int {
	return big.NewInt(n)
}

// ParseWei parses a non-negative base-10 wei amount.
func ParseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be a base-10 integer of wei")
	}
	if v.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be negative")
	}
	return v, nil
}

// ParsePositiveWei parses an amount that must be strictly greater than zero.
func ParsePositiveWei(s string) (*big.Int, error) {
	v, err := ParseWei(s)
	if err != nil {
		return nil, err
	}
	if v.Sign() == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount must be greater than zero")
	}
	return v, nil
}

// CopyWei returns a defensive copy, treating nil as zero.
func CopyWei(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
