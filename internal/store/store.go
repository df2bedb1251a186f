// Package store defines the persistence interface for the points engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache) and in-memory (for testing and development).
//
// Every mutation happens inside Update: the callback's writes become visible
// only if it returns nil, otherwise all of them are discarded.
package store

import (
	"context"
	"errors"

	"github.com/roxy/points-engine/internal/model"
)

// ErrNotInitialized is returned when the protocol record has not been seeded.
var ErrNotInitialized = errors.New("store: protocol not initialized")

// Reader is the read side of a transaction. Lookups report found=false for
// missing rows instead of an error.
type Reader interface {
	// Protocol returns the admin configuration and global counters.
	Protocol(ctx context.Context) (model.Protocol, error)

	// --- Accounts ---

	Account(ctx context.Context, id string) (model.Account, bool, error)
	UsernameOwner(ctx context.Context, username string) (string, bool, error)

	// --- Prediction market ---

	Event(ctx context.Context, id uint64) (model.Event, bool, error)
	Stake(ctx context.Context, key model.StakeKey) (uint64, bool, error)

	// --- Marketplace ---

	Listing(ctx context.Context, id uint64) (model.Listing, bool, error)

	// --- Guilds ---

	Guild(ctx context.Context, id uint64) (model.Guild, bool, error)
	Membership(ctx context.Context, key model.MemberKey) (bool, bool, error)
	GuildDeposit(ctx context.Context, key model.MemberKey) (uint64, bool, error)
	GuildStake(ctx context.Context, key model.GuildStakeKey) (uint64, bool, error)
	GuildStats(ctx context.Context, guildID uint64) (model.Stats, bool, error)

	// --- Native currency ---

	NativeBalance(ctx context.Context, id string) (uint64, error)

	// --- Audit trail ---

	LogEntry(ctx context.Context, id uint64) (model.LogEntry, bool, error)

	// LogEntries returns up to limit entries with ID >= from in ascending order.
	LogEntries(ctx context.Context, from uint64, limit int) ([]model.LogEntry, error)
}

// Tx is a read-write transaction.
type Tx interface {
	Reader

	PutProtocol(ctx context.Context, p model.Protocol) error
	PutAccount(ctx context.Context, a model.Account) error
	PutUsername(ctx context.Context, username, owner string) error
	PutEvent(ctx context.Context, e model.Event) error
	PutStake(ctx context.Context, key model.StakeKey, amount uint64) error
	PutListing(ctx context.Context, l model.Listing) error
	PutGuild(ctx context.Context, g model.Guild) error
	PutMembership(ctx context.Context, key model.MemberKey, member bool) error
	PutGuildDeposit(ctx context.Context, key model.MemberKey, amount uint64) error
	PutGuildStake(ctx context.Context, key model.GuildStakeKey, amount uint64) error
	PutGuildStats(ctx context.Context, guildID uint64, s model.Stats) error
	PutNativeBalance(ctx context.Context, id string, amount uint64) error

	// AppendLog assigns the next log id to entry, stores it and returns the id.
	AppendLog(ctx context.Context, entry model.LogEntry) (uint64, error)
}

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(r Reader) error) error

	// Update runs fn in a single serializable transaction. The writes commit
	// only when fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Seed writes the initial protocol record unless one already exists.
func Seed(ctx context.Context, st Store, p model.Protocol) error {
	return st.Update(ctx, func(tx Tx) error {
		_, err := tx.Protocol(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotInitialized) {
			return err
		}
		return tx.PutProtocol(ctx, p)
	})
}
