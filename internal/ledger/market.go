package ledger

import (
	"github.com/roxy/points-engine/internal/metrics"
	"github.com/roxy/points-engine/internal/model"
)

// CreateEvent opens a new event with empty pools. Admin only.
type CreateEvent struct {
	ID       uint64 `json:"id"`
	Metadata string `json:"metadata"`
}

func (CreateEvent) Action() string { return "create-event" }

func (c CreateEvent) apply(x *txn) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	if _, ok, err := x.tx.Event(x.ctx, c.ID); err != nil {
		return 0, err
	} else if ok {
		return 0, ErrEventIDExists
	}

	ev := model.Event{
		ID:       c.ID,
		Status:   model.EventOpen,
		Creator:  x.caller,
		Metadata: c.Metadata,
	}
	if err := x.tx.PutEvent(x.ctx, ev); err != nil {
		return 0, err
	}
	x.record(ptr(c.ID), nil, nil, c.Metadata)
	return c.ID, nil
}

// ResolveEvent fixes the winning side. Pools are left untouched. Admin only.
type ResolveEvent struct {
	ID          uint64 `json:"id"`
	WinnerIsYes bool   `json:"winner_is_yes"`
}

func (ResolveEvent) Action() string { return "resolve-event" }

func (c ResolveEvent) apply(x *txn) (uint64, error) {
	if err := x.requireAdmin(); err != nil {
		return 0, err
	}
	ev, err := x.event(c.ID)
	if err != nil {
		return 0, err
	}
	if ev.Status != model.EventOpen {
		return 0, ErrEventMustBeOpen
	}

	winner := c.WinnerIsYes
	ev.Status = model.EventResolved
	ev.Winner = &winner
	if err := x.tx.PutEvent(x.ctx, ev); err != nil {
		return 0, err
	}
	x.record(ptr(c.ID), nil, nil, string(model.SideOf(winner)))
	return 0, nil
}

// Stake moves points from the caller into one side of an open event.
type Stake struct {
	EventID uint64     `json:"event_id"`
	Side    model.Side `json:"side"`
	Amount  uint64     `json:"amount"`
}

func (c Stake) Action() string { return stakeAction("stake", c.Side) }

func stakeAction(prefix string, side model.Side) string {
	if !side.Valid() {
		return prefix
	}
	return prefix + "-" + string(side)
}

func (c Stake) apply(x *txn) (uint64, error) {
	if c.Amount == 0 || !c.Side.Valid() {
		return 0, ErrInvalidAmount
	}
	a, err := x.account(x.caller)
	if err != nil {
		return 0, err
	}
	ev, err := x.event(c.EventID)
	if err != nil {
		return 0, err
	}
	if ev.Status != model.EventOpen {
		return 0, ErrEventNotOpen
	}
	if a.Points < c.Amount {
		return 0, ErrInsufficientPoints
	}

	key := model.StakeKey{EventID: c.EventID, Account: x.caller, Side: c.Side}
	prev, _, err := x.tx.Stake(x.ctx, key)
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
		x.p.TotalYesStakes, err = add(x.p.TotalYesStakes, c.Amount)
	} else {
		x.p.TotalNoStakes, err = add(x.p.TotalNoStakes, c.Amount)
	}
	if err != nil {
		return 0, err
	}

	a.Points -= c.Amount
	if err := x.tx.PutAccount(x.ctx, a); err != nil {
		return 0, err
	}
	if err := x.tx.PutStake(x.ctx, key, stake); err != nil {
		return 0, err
	}
	if err := x.tx.PutEvent(x.ctx, ev); err != nil {
		return 0, err
	}

	x.record(ptr(c.EventID), nil, ptr(c.Amount), "")
	x.onCommit(func() { observeStake("account", c.Side, c.Amount) })
	return 0, nil
}

func addToPool(ev *model.Event, side model.Side, amount uint64) error {
	var err error
	if side == model.SideYes {
		ev.YesPool, err = add(ev.YesPool, amount)
	} else {
		ev.NoPool, err = add(ev.NoPool, amount)
	}
	return err
}

// Claim settles the caller's stakes on a resolved event and returns the reward.
// A caller holding only losing stakes claims a zero reward to record the loss.
type Claim struct {
	EventID uint64 `json:"event_id"`
}

func (Claim) Action() string { return "claim" }

func (c Claim) apply(x *txn) (uint64, error) {
	ev, err := resolvedEvent(x, c.EventID)
	if err != nil {
		return 0, err
	}
	winSide := model.SideOf(*ev.Winner)
	winKey := model.StakeKey{EventID: c.EventID, Account: x.caller, Side: winSide}
	loseKey := model.StakeKey{EventID: c.EventID, Account: x.caller, Side: winSide.Opposite()}

	win, _, err := x.tx.Stake(x.ctx, winKey)
	if err != nil {
		return 0, err
	}
	lose, _, err := x.tx.Stake(x.ctx, loseKey)
	if err != nil {
		return 0, err
	}
	reward, err := settle(ev, win, lose)
	if err != nil {
		return 0, err
	}

	if err := x.tx.PutStake(x.ctx, winKey, 0); err != nil {
		return 0, err
	}
	if err := x.tx.PutStake(x.ctx, loseKey, 0); err != nil {
		return 0, err
	}

	a, err := x.account(x.caller)
	if err != nil {
		return 0, err
	}
	if a.Points, err = add(a.Points, reward); err != nil {
		return 0, err
	}
	if reward > 0 {
		if a.EarnedPoints, err = add(a.EarnedPoints, reward); err != nil {
			return 0, err
		}
	}
	if err := recordStats(&a.Stats, reward); err != nil {
		return 0, err
	}
	if err := x.tx.PutAccount(x.ctx, a); err != nil {
		return 0, err
	}

	x.record(ptr(c.EventID), nil, ptr(reward), "")
	x.onCommit(func() { observeClaim("account", reward) })
	return reward, nil
}

// resolvedEvent loads an event that must exist and be resolved.
func resolvedEvent(x *txn, id uint64) (model.Event, error) {
	ev, err := x.event(id)
	if err != nil {
		return ev, err
	}
	if ev.Status != model.EventResolved || ev.Winner == nil {
		return ev, ErrEventMustBeResolved
	}
	return ev, nil
}

// settle computes the reward for a holder of win and lose stakes on a
// resolved event: floor((yesPool+noPool) * win / winningPool).
func settle(ev model.Event, win, lose uint64) (uint64, error) {
	winningPool := ev.Pool(model.SideOf(*ev.Winner))
	if winningPool == 0 {
		return 0, ErrNoWinners
	}
	if win == 0 && lose == 0 {
		return 0, ErrNoStakeFound
	}
	total, err := add(ev.YesPool, ev.NoPool)
	if err != nil {
		return 0, err
	}
	return Payout(total, win, winningPool)
}

// recordStats records a settled prediction, rejecting a TotalPointsEarned
// that would overflow.
func recordStats(s *model.Stats, reward uint64) error {
	if _, err := add(s.TotalPointsEarned, reward); err != nil {
		return err
	}
	s.Record(reward)
	return nil
}

func observeStake(scope string, side model.Side, amount uint64) {
	metrics.PointsStaked.WithLabelValues(scope, string(side)).Add(float64(amount))
}

func observeClaim(scope string, reward uint64) {
	outcome := "loss"
	if reward > 0 {
		outcome = "win"
	}
	metrics.ClaimsTotal.WithLabelValues(scope, outcome).Inc()
	metrics.PointsPaid.WithLabelValues(scope).Add(float64(reward))
}
