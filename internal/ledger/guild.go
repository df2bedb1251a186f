package ledger

import (
	"github.com/roxy/points-engine/internal/model"
)

// CreateGuild creates a guild with the caller as creator and sole member.
// Returns the guild id.
type CreateGuild struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func (CreateGuild) Action() string { return "create-guild" }

func (c CreateGuild) apply(x *txn) (uint64, error) {
	if _, ok, err := x.tx.Guild(x.ctx, c.ID); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrGuildIDExists
	}

	g := model.Guild{ID: c.ID, Creator: x.caller, Name: c.Name, MemberCount: 1}
	if err := x.tx.PutGuild(x.ctx, g); err != nil {
		return 0, err
	}
	if err := x.tx.PutMembership(x.ctx, model.MemberKey{GuildID: c.ID, Account: x.caller}, true); err != nil {
		return 0, err
	}
	x.record(nil, nil, nil, c.Name)
	return c.ID, nil
}

// JoinGuild adds the caller to a guild.
type JoinGuild struct {
	GuildID uint64 `json:"guild_id"`
}

func (JoinGuild) Action() string { return "join-guild" }

func (c JoinGuild) apply(x *txn) (uint64, error) {
	g, err := x.guild(c.GuildID)
	if err != nil {
		return 0, err
	}
	key := model.MemberKey{GuildID: c.GuildID, Account: x.caller}
	member, _, err := x.tx.Membership(x.ctx, key)
	if err != nil {
		return 0, err
	}
	if member {
		return 0, ErrAlreadyAMember
	}

	if g.MemberCount, err = add(g.MemberCount, 1); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuild(x.ctx, g); err != nil {
		return 0, err
	}
	if err := x.tx.PutMembership(x.ctx, key, true); err != nil {
		return 0, err
	}
	x.record(nil, nil, nil, itoa(c.GuildID))
	return 0, nil
}

// LeaveGuild removes the caller from a guild. The caller's deposit must be
// fully withdrawn first. The membership record stays, flipped to false.
type LeaveGuild struct {
	GuildID uint64 `json:"guild_id"`
}

func (LeaveGuild) Action() string { return "leave-guild" }

func (c LeaveGuild) apply(x *txn) (uint64, error) {
	g, err := x.guild(c.GuildID)
	if err != nil {
		return 0, err
	}
	if err := x.requireMember(c.GuildID); err != nil {
		return 0, err
	}
	key := model.MemberKey{GuildID: c.GuildID, Account: x.caller}
	deposit, _, err := x.tx.GuildDeposit(x.ctx, key)
	if err != nil {
		return 0, err
	}
	if deposit > 0 {
		return 0, ErrHasDeposits
	}

	g.MemberCount--
	if err := x.tx.PutGuild(x.ctx, g); err != nil {
		return 0, err
	}
	if err := x.tx.PutMembership(x.ctx, key, false); err != nil {
		return 0, err
	}
	x.record(nil, nil, nil, itoa(c.GuildID))
	return 0, nil
}

// DepositToGuild moves points from the caller's balance into their deposit
// slot and the guild's pooled balance.
type DepositToGuild struct {
	GuildID uint64 `json:"guild_id"`
	Amount  uint64 `json:"amount"`
}

func (DepositToGuild) Action() string { return "deposit-to-guild" }

func (c DepositToGuild) apply(x *txn) (uint64, error) {
	if c.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	g, err := x.guild(c.GuildID)
	if err != nil {
		return 0, err
	}
	if err := x.requireMember(c.GuildID); err != nil {
		return 0, err
	}
	a, err := x.debitable(x.caller, c.Amount)
	if err != nil {
		return 0, err
	}

	key := model.MemberKey{GuildID: c.GuildID, Account: x.caller}
	deposit, _, err := x.tx.GuildDeposit(x.ctx, key)
	if err != nil {
		return 0, err
	}
	if deposit, err = add(deposit, c.Amount); err != nil {
		return 0, err
	}
	if g.TotalPoints, err = add(g.TotalPoints, c.Amount); err != nil {
		return 0, err
	}

	a.Points -= c.Amount
	if err := x.tx.PutAccount(x.ctx, a); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuildDeposit(x.ctx, key, deposit); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuild(x.ctx, g); err != nil {
		return 0, err
	}
	x.record(nil, nil, ptr(c.Amount), itoa(c.GuildID))
	return 0, nil
}

// WithdrawFromGuild moves points from the caller's deposit slot back to their
// balance. It is bounded by the deposit and by the guild's pooled balance,
// which guild-stake losses may have reduced below the sum of deposits.
type WithdrawFromGuild struct {
	GuildID uint64 `json:"guild_id"`
	Amount  uint64 `json:"amount"`
}

func (WithdrawFromGuild) Action() string { return "withdraw-from-guild" }

func (c WithdrawFromGuild) apply(x *txn) (uint64, error) {
	if c.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	g, err := x.guild(c.GuildID)
	if err != nil {
		return 0, err
	}
	if err := x.requireMember(c.GuildID); err != nil {
		return 0, err
	}
	key := model.MemberKey{GuildID: c.GuildID, Account: x.caller}
	deposit, _, err := x.tx.GuildDeposit(x.ctx, key)
	if err != nil {
		return 0, err
	}
	if deposit < c.Amount {
		return 0, ErrInsufficientDeposits
	}
	if g.TotalPoints < c.Amount {
		return 0, ErrInsufficientPoints
	}

	g.TotalPoints -= c.Amount
	if err := x.tx.PutGuild(x.ctx, g); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuildDeposit(x.ctx, key, deposit-c.Amount); err != nil {
		return 0, err
	}
	if err := x.credit(x.caller, c.Amount); err != nil {
		return 0, err
	}
	x.record(nil, nil, ptr(c.Amount), itoa(c.GuildID))
	return 0, nil
}

// GuildStake stakes pooled guild points on one side of an open event. The
// stake joins the event's shared pools.
type GuildStake struct {
	GuildID uint64     `json:"guild_id"`
	EventID uint64     `json:"event_id"`
	Side    model.Side `json:"side"`
	Amount  uint64     `json:"amount"`
}

func (c GuildStake) Action() string { return stakeAction("guild-stake", c.Side) }

func (c GuildStake) apply(x *txn) (uint64, error) {
	if c.Amount == 0 || !c.Side.Valid() {
		return 0, ErrInvalidAmount
	}
	g, err := x.guild(c.GuildID)
	if err != nil {
		return 0, err
	}
	if err := x.requireMember(c.GuildID); err != nil {
		return 0, err
	}
	ev, err := x.event(c.EventID)
	if err != nil {
		return 0, err
	}
	if ev.Status != model.EventOpen {
		return 0, ErrEventNotOpen
	}
	if g.TotalPoints < c.Amount {
		return 0, ErrInsufficientPoints
	}

	key := model.GuildStakeKey{GuildID: c.GuildID, EventID: c.EventID, Side: c.Side}
	prev, _, err := x.tx.GuildStake(x.ctx, key)
	if err != nil {
		return 0, err
	}
	stake, err := add(prev, c.Amount)
	if err != nil {
		return 0, err
	}
	if err := addToPool(&ev, c.Side, c.Amount); err != nil {
		return 0, err
	}
	if c.Side == model.SideYes {
		x.p.TotalGuildYesStakes, err = add(x.p.TotalGuildYesStakes, c.Amount)
	} else {
		x.p.TotalGuildNoStakes, err = add(x.p.TotalGuildNoStakes, c.Amount)
	}
	if err != nil {
		return 0, err
	}

	g.TotalPoints -= c.Amount
	if err := x.tx.PutGuild(x.ctx, g); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuildStake(x.ctx, key, stake); err != nil {
		return 0, err
	}
	if err := x.tx.PutEvent(x.ctx, ev); err != nil {
		return 0, err
	}

	x.record(ptr(c.EventID), nil, ptr(c.Amount), itoa(c.GuildID))
	x.onCommit(func() { observeStake("guild", c.Side, c.Amount) })
	return 0, nil
}

// GuildClaim settles the guild's stakes on a resolved event into the guild's
// pooled balance. Any member may call it; no member's earned points change.
type GuildClaim struct {
	GuildID uint64 `json:"guild_id"`
	EventID uint64 `json:"event_id"`
}

func (GuildClaim) Action() string { return "guild-claim" }

func (c GuildClaim) apply(x *txn) (uint64, error) {
	g, err := x.guild(c.GuildID)
	if err != nil {
		return 0, err
	}
	if err := x.requireMember(c.GuildID); err != nil {
		return 0, err
	}
	ev, err := resolvedEvent(x, c.EventID)
	if err != nil {
		return 0, err
	}
	winSide := model.SideOf(*ev.Winner)
	winKey := model.GuildStakeKey{GuildID: c.GuildID, EventID: c.EventID, Side: winSide}
	loseKey := model.GuildStakeKey{GuildID: c.GuildID, EventID: c.EventID, Side: winSide.Opposite()}

	win, _, err := x.tx.GuildStake(x.ctx, winKey)
	if err != nil {
		return 0, err
	}
	lose, _, err := x.tx.GuildStake(x.ctx, loseKey)
	if err != nil {
		return 0, err
	}
	reward, err := settle(ev, win, lose)
	if err != nil {
		return 0, err
	}

	if err := x.tx.PutGuildStake(x.ctx, winKey, 0); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuildStake(x.ctx, loseKey, 0); err != nil {
		return 0, err
	}
	if g.TotalPoints, err = add(g.TotalPoints, reward); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuild(x.ctx, g); err != nil {
		return 0, err
	}

	stats, _, err := x.tx.GuildStats(x.ctx, c.GuildID)
	if err != nil {
		return 0, err
	}
	if err := recordStats(&stats, reward); err != nil {
		return 0, err
	}
	if err := x.tx.PutGuildStats(x.ctx, c.GuildID, stats); err != nil {
		return 0, err
	}

	x.record(ptr(c.EventID), nil, ptr(reward), itoa(c.GuildID))
	x.onCommit(func() { observeClaim("guild", reward) })
	return reward, nil
}
