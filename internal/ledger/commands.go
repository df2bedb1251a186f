package ledger

import (
	"strconv"

	"github.com/roxy/points-engine/internal/model"
)

// Command is one state-changing operation. The set is closed: only the types
// in this package implement it.
type Command interface {
	// Action is the audit-log tag recorded for the command.
	Action() string
	apply(x *txn) (uint64, error)
}

var (
	_ Command = Register{}
	_ Command = CreateEvent{}
	_ Command = ResolveEvent{}
	_ Command = Stake{}
	_ Command = Claim{}
	_ Command = CreateListing{}
	_ Command = BuyListing{}
	_ Command = CancelListing{}
	_ Command = CreateGuild{}
	_ Command = JoinGuild{}
	_ Command = LeaveGuild{}
	_ Command = DepositToGuild{}
	_ Command = WithdrawFromGuild{}
	_ Command = GuildStake{}
	_ Command = GuildClaim{}
	_ Command = MintAdminPoints{}
	_ Command = BuyAdminPoints{}
	_ Command = WithdrawProtocolFees{}
	_ Command = SetMinEarnedForSell{}
	_ Command = SetListingFee{}
	_ Command = SetProtocolFeeBps{}
	_ Command = SetAdminPointPrice{}
	_ Command = SetStartingPoints{}
	_ Command = TransferAdmin{}
	_ Command = depositNative{}
)

// --- Identity ---

// Register creates the caller's account with the starting grant and reserves
// the username.
type Register struct {
	Username string `json:"username"`
}

func (Register) Action() string { return "register" }

func (c Register) apply(x *txn) (uint64, error) {
	if _, ok, err := x.tx.Account(x.ctx, x.caller); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrUserAlreadyRegistered
	}
	if _, taken, err := x.tx.UsernameOwner(x.ctx, c.Username); err != nil {
		return 0, err
	} else if taken {
		return 0, ErrUsernameTaken
	}

	a := model.Account{ID: x.caller, Username: c.Username, Points: x.p.StartingPoints}
	if err := x.tx.PutAccount(x.ctx, a); err != nil {
		return 0, err
	}
	if err := x.tx.PutUsername(x.ctx, c.Username, x.caller); err != nil {
		return 0, err
	}
	x.record(nil, nil, ptr(x.p.StartingPoints), c.Username)
	return 0, nil
}

// --- Native inflow ---

// depositNative is issued only through Engine.DepositNative.
type depositNative struct {
	To     string
	Amount uint64
	d      depositor
}

func (depositNative) Action() string { return "deposit-native" }

func (c depositNative) apply(x *txn) (uint64, error) {
	if c.Amount == 0 || c.To == "" || c.To == CustodyAccount {
		return 0, ErrInvalidAmount
	}
	if err := c.d.Deposit(x.ctx, x.tx, c.To, c.Amount); err != nil {
		return 0, err
	}
	x.record(nil, nil, ptr(c.Amount), c.To)
	return 0, nil
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }
