package ledger

import (
	"github.com/roxy/points-engine/internal/model"
)

// MintAdminPoints creates points in the admin's own balance.
type MintAdminPoints struct {
	Amount uint64 `json:"amount"`
}

func (MintAdminPoints) Action() string { return "mint-admin-points" }

func (c MintAdminPoints) apply(x *txn) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	if c.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	minted, err := add(x.p.TotalAdminMinted, c.Amount)
	if err != nil {
		return 0, err
	}
	if err := x.credit(x.caller, c.Amount); err != nil {
		return 0, err
	}
	x.p.TotalAdminMinted = minted
	x.record(nil, nil, ptr(c.Amount), "")
	return 0, nil
}

// BuyAdminPoints buys points from the admin's balance at the admin point
// price. The whole payment goes to the treasury.
type BuyAdminPoints struct {
	Points uint64 `json:"points"`
}

func (BuyAdminPoints) Action() string { return "buy-admin-points" }

func (c BuyAdminPoints) apply(x *txn) (uint64, error) {
	if c.Points == 0 {
		return 0, ErrInvalidAmount
	}
	if _, err := x.account(x.caller); err != nil {
		return 0, err
	}
	admin, err := x.debitable(x.p.Admin, c.Points)
	if err != nil {
		return 0, err
	}
	cost, err := mul(c.Points, x.p.AdminPointPrice)
	if err != nil {
		return 0, err
	}
	if err := x.payTreasury(cost); err != nil {
		return 0, err
	}

	admin.Points -= c.Points
	if err := x.tx.PutAccount(x.ctx, admin); err != nil {
		return 0, err
	}
	// Re-read so a self-purchase by the admin nets to zero.
	if err := x.credit(x.caller, c.Points); err != nil {
		return 0, err
	}
	x.record(nil, nil, ptr(c.Points), itoa(cost))
	return cost, nil
}

// WithdrawProtocolFees pays treasury funds out to the admin.
type WithdrawProtocolFees struct {
	Amount uint64 `json:"amount"`
}

func (WithdrawProtocolFees) Action() string { return "withdraw-protocol-fees" }

func (c WithdrawProtocolFees) apply(x *txn) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	if c.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	if c.Amount > x.p.Treasury {
		return 0, ErrInsufficientTreasury
	}
	if err := x.pay(CustodyAccount, x.caller, c.Amount); err != nil {
		return 0, err
	}
	x.p.Treasury -= c.Amount
	x.record(nil, nil, ptr(c.Amount), "")
	return 0, nil
}

// --- Configuration setters. All are admin only. ---

// SetMinEarnedForSell sets the earned-points threshold for creating listings.
type SetMinEarnedForSell struct {
	Value uint64 `json:"value"`
}

func (SetMinEarnedForSell) Action() string { return "set-min-earned-for-sell" }

func (c SetMinEarnedForSell) apply(x *txn) (uint64, error) {
	return x.set(&x.p.MinEarnedForSell, c.Value)
}

// SetListingFee sets the flat native-currency fee charged per listing.
type SetListingFee struct {
	Value uint64 `json:"value"`
}

func (SetListingFee) Action() string { return "set-listing-fee" }

func (c SetListingFee) apply(x *txn) (uint64, error) {
	return x.set(&x.p.ListingFee, c.Value)
}

// SetProtocolFeeBps sets the marketplace sale fee, at most 1000 bps.
type SetProtocolFeeBps struct {
	Value uint64 `json:"value"`
}

func (SetProtocolFeeBps) Action() string { return "set-protocol-fee-bps" }

func (c SetProtocolFeeBps) apply(x *txn) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	if c.Value > model.MaxProtocolFeeBps {
		return 0, ErrInvalidAmount
	}
	return x.set(&x.p.ProtocolFeeBps, c.Value)
}

// SetAdminPointPrice sets the native price per admin point. Zero is rejected.
type SetAdminPointPrice struct {
	Value uint64 `json:"value"`
}

func (SetAdminPointPrice) Action() string { return "set-admin-point-price" }

func (c SetAdminPointPrice) apply(x *txn) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	if c.Value == 0 {
		return 0, ErrInvalidAmount
	}
	return x.set(&x.p.AdminPointPrice, c.Value)
}

// SetStartingPoints sets the grant for future registrations.
type SetStartingPoints struct {
	Value uint64 `json:"value"`
}

func (SetStartingPoints) Action() string { return "set-starting-points" }

func (c SetStartingPoints) apply(x *txn) (uint64, error) {
	return x.set(&x.p.StartingPoints, c.Value)
}

// TransferAdmin hands the admin role to another identity.
type TransferAdmin struct {
	NewAdmin string `json:"new_admin"`
}

func (TransferAdmin) Action() string { return "transfer-admin" }

func (c TransferAdmin) apply(x *txn) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	if c.NewAdmin == "" {
		return 0, ErrInvalidAmount
	}
	if c.NewAdmin == CustodyAccount {
		return 0, ErrReservedIdentity
	}
	x.p.Admin = c.NewAdmin
	x.record(nil, nil, nil, c.NewAdmin)
	return 0, nil
}

// set writes an admin-gated protocol parameter.
func (x *txn) set(field *uint64, value uint64) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	*field = value
	x.record(nil, nil, ptr(value), "")
	return 0, nil
}
