package ledger

import (
	"github.com/roxy/points-engine/internal/model"
)

// CreateListing locks points from the caller into a new listing and charges
// the flat listing fee into the treasury. Returns the listing id.
type CreateListing struct {
	Points     uint64 `json:"points"`
	PriceTotal uint64 `json:"price_total"`
}

func (CreateListing) Action() string { return "create-listing" }

func (c CreateListing) apply(x *txn) (uint64, error) {
	if c.Points == 0 || c.PriceTotal == 0 {
		return 0, ErrInvalidAmount
	}
	a, _, err := x.tx.Account(x.ctx, x.caller)
	if err != nil {
		return 0, err
	}
	if a.EarnedPoints < x.p.MinEarnedForSell {
		return 0, ErrInsufficientEarnedPoints
	}
	if a.Points < c.Points {
		return 0, ErrInsufficientPoints
	}

	if err := x.payTreasury(x.p.ListingFee); err != nil {
		return 0, err
	}
	a.Points -= c.Points
	if err := x.tx.PutAccount(x.ctx, a); err != nil {
		return 0, err
	}

	id := x.p.NextListingID
	if x.p.NextListingID, err = add(id, 1); err != nil {
		return 0, err
	}
	l := model.Listing{
		ID:         id,
		Seller:     x.caller,
		Points:     c.Points,
		PriceTotal: c.PriceTotal,
		Active:     true,
	}
	if err := x.tx.PutListing(x.ctx, l); err != nil {
		return 0, err
	}
	x.record(nil, ptr(id), ptr(c.Points), itoa(c.PriceTotal))
	return id, nil
}

// BuyListing purchases part or all of a listing at its current price per
// point. The protocol fee goes to the treasury and the rest to the seller.
type BuyListing struct {
	ListingID uint64 `json:"listing_id"`
	Points    uint64 `json:"points"`
}

func (BuyListing) Action() string { return "buy-listing" }

func (c BuyListing) apply(x *txn) (uint64, error) {
	if c.Points == 0 {
		return 0, ErrInvalidAmount
	}
	l, err := x.listing(c.ListingID)
	if err != nil {
		return 0, err
	}
	if !l.Active {
		return 0, ErrListingNotActive
	}
	if c.Points > l.Points {
		return 0, ErrInsufficientAvailablePoints
	}
	buyer, err := x.account(x.caller)
	if err != nil {
		return 0, err
	}

	cost, err := mul(c.Points, l.PriceTotal/l.Points)
	if err != nil {
		return 0, err
	}
	fee, err := Fee(cost, x.p.ProtocolFeeBps)
	if err != nil {
		return 0, err
	}
	if err := x.payTreasury(fee); err != nil {
		return 0, err
	}
	if err := x.pay(x.caller, l.Seller, cost-fee); err != nil {
		return 0, err
	}

	if buyer.Points, err = add(buyer.Points, c.Points); err != nil {
		return 0, err
	}
	if err := x.tx.PutAccount(x.ctx, buyer); err != nil {
		return 0, err
	}

	l.Points -= c.Points
	l.PriceTotal -= cost
	if l.Points == 0 {
		l.PriceTotal = 0
		l.Active = false
	}
	if err := x.tx.PutListing(x.ctx, l); err != nil {
		return 0, err
	}
	x.record(nil, ptr(c.ListingID), ptr(c.Points), itoa(cost))
	return cost, nil
}

// CancelListing returns the remaining points to the seller. The listing keeps
// its last points and price as a historical record.
type CancelListing struct {
	ListingID uint64 `json:"listing_id"`
}

func (CancelListing) Action() string { return "cancel-listing" }

func (c CancelListing) apply(x *txn) (uint64, error) {
	l, err := x.listing(c.ListingID)
	if err != nil {
		return 0, err
	}
	if !l.Active {
		return 0, ErrListingNotActive
	}
	if l.Seller != x.caller {
		return 0, ErrOnlySellerCanCancel
	}

	if err := x.credit(l.Seller, l.Points); err != nil {
		return 0, err
	}
	l.Active = false
	if err := x.tx.PutListing(x.ctx, l); err != nil {
		return 0, err
	}
	x.record(nil, ptr(c.ListingID), ptr(l.Points), "")
	return 0, nil
}
