// Package custody moves wei between account balances and the ledger's custody
// account. Every transfer happens inside the caller's store transaction and
// either moves the full amount or nothing.
package custody

import (
	"context"
	"math/big"

	"flightsurety/internal/ledger/store"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// Deposit moves amount from account into custody.
func Deposit(ctx context.Context, tx store.Tx, from domain.Address, amount *big.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	balance, err := tx.Balance(ctx, from)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
	}
	if balance.Cmp(amount) < 0 {
		return dErrors.Newf(dErrors.CodeInsufficientFunds, "balance %s wei is below %s wei", balance, amount)
	}
	return transfer(ctx, tx, from, balance, store.CustodyAccount, amount)
}

// Release moves amount from custody to account.
func Release(ctx context.Context, tx store.Tx, to domain.Address, amount *big.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	held, err := tx.Balance(ctx, store.CustodyAccount)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody balance")
	}
	if held.Cmp(amount) < 0 {
		return dErrors.Newf(dErrors.CodeInsufficientCustody, "custody holds %s wei, %s wei required", held, amount)
	}
	return transfer(ctx, tx, store.CustodyAccount, held, to, amount)
}

// Credit adds externally funded wei to account.
func Credit(ctx context.Context, tx store.Tx, account domain.Address, amount *big.Int) (*big.Int, error) {
	if err := requirePositive(amount); err != nil {
		return nil, err
	}
	balance, err := tx.Balance(ctx, account)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
	}
	balance.Add(balance, amount)
	if err := tx.SetBalance(ctx, account, balance); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save balance")
	}
	return balance, nil
}

func transfer(ctx context.Context, tx store.Tx, from domain.Address, fromBalance *big.Int, to domain.Address, amount *big.Int) error {
	if err := tx.SetBalance(ctx, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to debit balance")
	}
	toBalance, err := tx.Balance(ctx, to)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
	}
	if err := tx.SetBalance(ctx, to, toBalance.Add(toBalance, amount)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit balance")
	}
	return nil
}

func requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	return nil
}
