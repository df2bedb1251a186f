package ledger

import (
	"context"

	"github.com/roxy/points-engine/internal/store"
)

// CustodyAccount is the native-currency identity that holds the protocol
// treasury. Its vault balance always equals Protocol.Treasury.
const CustodyAccount = "protocol:treasury"

// Currency is the native-currency transfer primitive. A transfer either moves
// the full amount or returns an error; it never moves part of it. Transfers
// run inside the command's store transaction so a later failure discards them.
type Currency interface {
	Transfer(ctx context.Context, tx store.Tx, from, to string, amount uint64) error
}

// Vault is the default Currency: native balances live in the same store as
// the ledger.
type Vault struct{}

func (Vault) Transfer(ctx context.Context, tx store.Tx, from, to string, amount uint64) error {
	if from == to {
		return nil
	}
	fromBal, err := tx.NativeBalance(ctx, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return ErrTransferFailed
	}
	toBal, err := tx.NativeBalance(ctx, to)
	if err != nil {
		return err
	}
	toBal, err = add(toBal, amount)
	if err != nil {
		return err
	}
	if err := tx.PutNativeBalance(ctx, from, fromBal-amount); err != nil {
		return err
	}
	return tx.PutNativeBalance(ctx, to, toBal)
}

// Deposit credits externally supplied native currency to id.
func (Vault) Deposit(ctx context.Context, tx store.Tx, id string, amount uint64) error {
	bal, err := tx.NativeBalance(ctx, id)
	if err != nil {
		return err
	}
	bal, err = add(bal, amount)
	if err != nil {
		return err
	}
	return tx.PutNativeBalance(ctx, id, bal)
}
