package ledger

import (
	"context"

	"github.com/roxy/points-engine/internal/model"
	"github.com/roxy/points-engine/internal/store"
)

// Queries are read-only and never take the engine lock.

// Protocol returns the admin configuration, treasury and lifetime counters.
func (e *Engine) Protocol(ctx context.Context) (model.Protocol, error) {
	var p model.Protocol
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		p, err = r.Protocol(ctx)
		return err
	})
	return p, err
}

// Account returns a registered account.
func (e *Engine) Account(ctx context.Context, id string) (model.Account, error) {
	var a model.Account
	err := e.store.View(ctx, func(r store.Reader) error {
		var ok bool
		var err error
		a, ok, err = r.Account(ctx, id)
		if err == nil && !ok {
			err = ErrUserNotRegistered
		}
		return err
	})
	return a, err
}

// UsernameOwner returns the identity that registered username.
func (e *Engine) UsernameOwner(ctx context.Context, username string) (string, error) {
	var owner string
	err := e.store.View(ctx, func(r store.Reader) error {
		var ok bool
		var err error
		owner, ok, err = r.UsernameOwner(ctx, username)
		if err == nil && !ok {
			err = ErrUserNotRegistered
		}
		return err
	})
	return owner, err
}

// CanSell reports whether id has earned enough points to create listings.
// Unregistered identities have earned nothing.
func (e *Engine) CanSell(ctx context.Context, id string) (bool, error) {
	var can bool
	err := e.store.View(ctx, func(r store.Reader) error {
		p, err := r.Protocol(ctx)
		if err != nil {
			return err
		}
		a, _, err := r.Account(ctx, id)
		if err != nil {
			return err
		}
		can = a.EarnedPoints >= p.MinEarnedForSell
		return nil
	})
	return can, err
}

// Event returns an event.
func (e *Engine) Event(ctx context.Context, id uint64) (model.Event, error) {
	var ev model.Event
	err := e.store.View(ctx, func(r store.Reader) error {
		var ok bool
		var err error
		ev, ok, err = r.Event(ctx, id)
		if err == nil && !ok {
			err = ErrEventNotFound
		}
		return err
	})
	return ev, err
}

// Stake returns the individual stake for key; absent stakes read as zero.
func (e *Engine) Stake(ctx context.Context, key model.StakeKey) (uint64, error) {
	var v uint64
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		v, _, err = r.Stake(ctx, key)
		return err
	})
	return v, err
}

// Listing returns a listing, active or not.
func (e *Engine) Listing(ctx context.Context, id uint64) (model.Listing, error) {
	var l model.Listing
	err := e.store.View(ctx, func(r store.Reader) error {
		var ok bool
		var err error
		l, ok, err = r.Listing(ctx, id)
		if err == nil && !ok {
			err = ErrListingNotFound
		}
		return err
	})
	return l, err
}

// Guild returns a guild.
func (e *Engine) Guild(ctx context.Context, id uint64) (model.Guild, error) {
	var g model.Guild
	err := e.store.View(ctx, func(r store.Reader) error {
		var ok bool
		var err error
		g, ok, err = r.Guild(ctx, id)
		if err == nil && !ok {
			err = ErrGuildNotFound
		}
		return err
	})
	return g, err
}

// Membership is the recorded membership flag for a (guild, account) pair.
// Recorded is false when the account never joined; Member may be false for
// an account that left.
type Membership struct {
	Member   bool `json:"member"`
	Recorded bool `json:"recorded"`
}

// Membership returns the membership record for key.
func (e *Engine) Membership(ctx context.Context, key model.MemberKey) (Membership, error) {
	var m Membership
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		m.Member, m.Recorded, err = r.Membership(ctx, key)
		return err
	})
	return m, err
}

// GuildDeposit returns a member's redeemable deposit.
func (e *Engine) GuildDeposit(ctx context.Context, key model.MemberKey) (uint64, error) {
	var v uint64
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		v, _, err = r.GuildDeposit(ctx, key)
		return err
	})
	return v, err
}

// GuildStake returns the guild's stake for key.
func (e *Engine) GuildStake(ctx context.Context, key model.GuildStakeKey) (uint64, error) {
	var v uint64
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		v, _, err = r.GuildStake(ctx, key)
		return err
	})
	return v, err
}

// GuildStats returns the guild's settled-prediction record.
func (e *Engine) GuildStats(ctx context.Context, guildID uint64) (model.Stats, error) {
	var st model.Stats
	err := e.store.View(ctx, func(r store.Reader) error {
		if _, ok, err := r.Guild(ctx, guildID); err != nil {
			return err
		} else if !ok {
			return ErrGuildNotFound
		}
		var err error
		st, _, err = r.GuildStats(ctx, guildID)
		return err
	})
	return st, err
}

// NativeBalance returns id's native-currency balance held by the store.
func (e *Engine) NativeBalance(ctx context.Context, id string) (uint64, error) {
	var v uint64
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		v, err = r.NativeBalance(ctx, id)
		return err
	})
	return v, err
}

// LogEntry returns the audit entry with id.
func (e *Engine) LogEntry(ctx context.Context, id uint64) (model.LogEntry, error) {
	var entry model.LogEntry
	err := e.store.View(ctx, func(r store.Reader) error {
		var ok bool
		var err error
		entry, ok, err = r.LogEntry(ctx, id)
		if err == nil && !ok {
			err = ErrLogEntryNotFound
		}
		return err
	})
	return entry, err
}

// LogEntries returns up to limit audit entries starting at id from.
func (e *Engine) LogEntries(ctx context.Context, from uint64, limit int) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		entries, err = r.LogEntries(ctx, from, limit)
		return err
	})
	return entries, err
}
