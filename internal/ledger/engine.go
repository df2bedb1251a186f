// Package ledger implements the points economy state machine: accounts, the
// prediction market, the marketplace, guild pooling, admin configuration and
// the audit trail.
//
// Every command runs through Engine.Execute, which serializes execution and
// wraps the command in a single store transaction. A command that fails at any
// step leaves no trace: neither its state changes, its native transfers nor
// its log entry are committed.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roxy/points-engine/internal/metrics"
	"github.com/roxy/points-engine/internal/model"
	"github.com/roxy/points-engine/internal/store"
)

// ErrDepositUnsupported is returned by DepositNative when the configured
// Currency cannot mint external inflows.
var ErrDepositUnsupported = errors.New("ledger: currency does not accept deposits")

// Notifier receives every committed log entry.
type Notifier interface {
	Publish(entry model.LogEntry)
}

// Receipt is the outcome of a committed command.
type Receipt struct {
	CallID uuid.UUID `json:"call_id"`
	LogID  uint64    `json:"log_id"`
	// Value is the claim reward, the purchase cost, the new event, listing
	// or guild id, or 0.
	Value uint64 `json:"value"`
}

// Engine executes commands against a Store. Uses a mutex for serialized
// command execution within one process; the store transaction provides
// atomicity and, for PostgreSQL, isolation across processes.
type Engine struct {
	store    store.Store
	currency Currency
	notifier Notifier
	mu       sync.Mutex
	now      func() time.Time
}

// NewEngine creates a new engine. Pass nil for cur to keep native balances in
// the store (Vault), and nil for n if committed entries need not be published.
func NewEngine(st store.Store, cur Currency, n Notifier) *Engine {
	if cur == nil {
		cur = Vault{}
	}
	return &Engine{
		store:    st,
		currency: cur,
		notifier: n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs cmd on behalf of caller. The caller identity is trusted as given.
func (e *Engine) Execute(ctx context.Context, caller string, cmd Command) (Receipt, error) {
	start := time.Now()
	receipt := Receipt{CallID: uuid.New()}
	action := cmd.Action()

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		entry    model.LogEntry
		treasury uint64
		hooks    []func()
	)
	err := e.store.Update(ctx, func(tx store.Tx) error {
		if caller == CustodyAccount {
			return ErrReservedIdentity
		}
		p, err := tx.Protocol(ctx)
		if err != nil {
			return err
		}
		x := &txn{ctx: ctx, tx: tx, caller: caller, p: p, currency: e.currency}
		value, err := cmd.apply(x)
		if err != nil {
			return err
		}
		if x.p != p {
			if err := tx.PutProtocol(ctx, x.p); err != nil {
				return err
			}
		}

		x.entry.Action = action
		x.entry.User = caller
		x.entry.CreatedAt = e.now()
		id, err := tx.AppendLog(ctx, x.entry)
		if err != nil {
			return err
		}
		x.entry.ID = id

		entry = x.entry
		treasury = x.p.Treasury
		hooks = x.hooks
		receipt.Value = value
		return nil
	})

	metrics.CommandLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())
	if err != nil {
		if le, ok := AsError(err); ok {
			metrics.CommandsTotal.WithLabelValues(action, le.Kind).Inc()
			slog.Debug("command rejected",
				"call_id", receipt.CallID,
				"action", action,
				"caller", caller,
				"kind", le.Kind,
			)
		} else {
			metrics.CommandsTotal.WithLabelValues(action, "error").Inc()
			slog.Error("command failed",
				"call_id", receipt.CallID,
				"action", action,
				"caller", caller,
				"err", err,
			)
		}
		return receipt, err
	}

	receipt.LogID = entry.ID
	metrics.CommandsTotal.WithLabelValues(action, "ok").Inc()
	metrics.TreasuryBalance.Set(float64(treasury))
	for _, fn := range hooks {
		fn()
	}

	slog.Info("command executed",
		"call_id", receipt.CallID,
		"action", action,
		"caller", caller,
		"log_id", entry.ID,
		"value", receipt.Value,
	)

	if e.notifier != nil {
		e.notifier.Publish(entry)
	}
	return receipt, nil
}

// depositor is implemented by currencies that accept external inflows.
type depositor interface {
	Deposit(ctx context.Context, tx store.Tx, id string, amount uint64) error
}

// DepositNative credits externally supplied native currency to id. It is the
// only way native units enter the system and is logged as "deposit-native".
func (e *Engine) DepositNative(ctx context.Context, caller, id string, amount uint64) (Receipt, error) {
	d, ok := e.currency.(depositor)
	if !ok {
		return Receipt{}, ErrDepositUnsupported
	}
	return e.Execute(ctx, caller, depositNative{To: id, Amount: amount, d: d})
}

// txn is the per-command execution context.
type txn struct {
	ctx      context.Context
	tx       store.Tx
	caller   string
	p        model.Protocol
	currency Currency
	entry    model.LogEntry
	hooks    []func()
}

// onCommit registers fn to run after the transaction commits.
func (x *txn) onCommit(fn func()) {
	x.hooks = append(x.hooks, fn)
}

// record fills the audit entry for the command. Action, user and id are set by Execute.
func (x *txn) record(eventID, listingID, amount *uint64, metadata string) {
	x.entry.EventID = eventID
	x.entry.ListingID = listingID
	x.entry.Amount = amount
	x.entry.Metadata = metadata
}

func ptr(v uint64) *uint64 { return &v }

func (x *txn) requireAdmin() error {
	if x.caller != x.p.Admin {
		return ErrNotAdmin
	}
	return nil
}

// account loads a registered account.
func (x *txn) account(id string) (model.Account, error) {
	a, ok, err := x.tx.Account(x.ctx, id)
	if err != nil {
		return a, err
	}
	if !ok {
		return a, ErrUserNotRegistered
	}
	return a, nil
}

// debitable loads id's account and checks it holds at least amount points.
// Unregistered identities hold nothing.
func (x *txn) debitable(id string, amount uint64) (model.Account, error) {
	a, ok, err := x.tx.Account(x.ctx, id)
	if err != nil {
		return a, err
	}
	if !ok || a.Points < amount {
		return a, ErrInsufficientPoints
	}
	return a, nil
}

// credit adds amount to a registered account's spendable points.
func (x *txn) credit(id string, amount uint64) error {
	a, err := x.account(id)
	if err != nil {
		return err
	}
	if a.Points, err = add(a.Points, amount); err != nil {
		return err
	}
	return x.tx.PutAccount(x.ctx, a)
}

func (x *txn) event(id uint64) (model.Event, error) {
	ev, ok, err := x.tx.Event(x.ctx, id)
	if err != nil {
		return ev, err
	}
	if !ok {
		return ev, ErrEventNotFound
	}
	return ev, nil
}

func (x *txn) listing(id uint64) (model.Listing, error) {
	l, ok, err := x.tx.Listing(x.ctx, id)
	if err != nil {
		return l, err
	}
	if !ok {
		return l, ErrListingNotFound
	}
	return l, nil
}

func (x *txn) guild(id uint64) (model.Guild, error) {
	g, ok, err := x.tx.Guild(x.ctx, id)
	if err != nil {
		return g, err
	}
	if !ok {
		return g, ErrGuildNotFound
	}
	return g, nil
}

// requireMember fails with ErrNotAMember unless the caller currently belongs to the guild.
func (x *txn) requireMember(guildID uint64) error {
	member, _, err := x.tx.Membership(x.ctx, model.MemberKey{GuildID: guildID, Account: x.caller})
	if err != nil {
		return err
	}
	if !member {
		return ErrNotAMember
	}
	return nil
}

// pay moves native currency. Zero amounts are skipped.
func (x *txn) pay(from, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return x.currency.Transfer(x.ctx, x.tx, from, to, amount)
}

// payTreasury moves amount from the caller into custody and books it in the treasury.
func (x *txn) payTreasury(amount uint64) error {
	treasury, err := add(x.p.Treasury, amount)
	if err != nil {
		return err
	}
	if err := x.pay(x.caller, CustodyAccount, amount); err != nil {
		return err
	}
	x.p.Treasury = treasury
	return nil
}
