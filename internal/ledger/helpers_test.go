package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/roxy/points-engine/internal/ledger"
	"github.com/roxy/points-engine/internal/model"
	"github.com/roxy/points-engine/internal/store"
)

const admin = "admin"

// newTestEngine creates an engine over a seeded in-memory store.
func newTestEngine(t *testing.T) (*ledger.Engine, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	if err := store.Seed(context.Background(), ms, model.NewProtocol(admin)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return ledger.NewEngine(ms, nil, nil), ms
}

func mustExec(t *testing.T, eng *ledger.Engine, caller string, cmd ledger.Command) ledger.Receipt {
	t.Helper()
	rc, err := eng.Execute(context.Background(), caller, cmd)
	if err != nil {
		t.Fatalf("%s by %s: unexpected error: %v", cmd.Action(), caller, err)
	}
	return rc
}

func expectErr(t *testing.T, eng *ledger.Engine, caller string, cmd ledger.Command, want error) {
	t.Helper()
	_, err := eng.Execute(context.Background(), caller, cmd)
	if !errors.Is(err, want) {
		t.Fatalf("%s by %s: expected %v, got %v", cmd.Action(), caller, want, err)
	}
}

func register(t *testing.T, eng *ledger.Engine, ids ...string) {
	t.Helper()
	for _, id := range ids {
		mustExec(t, eng, id, ledger.Register{Username: id + "-name"})
	}
}

func fund(t *testing.T, eng *ledger.Engine, id string, amount uint64) {
	t.Helper()
	if _, err := eng.DepositNative(context.Background(), admin, id, amount); err != nil {
		t.Fatalf("deposit native to %s: %v", id, err)
	}
}

func account(t *testing.T, eng *ledger.Engine, id string) model.Account {
	t.Helper()
	a, err := eng.Account(context.Background(), id)
	if err != nil {
		t.Fatalf("account %s: %v", id, err)
	}
	return a
}

func native(t *testing.T, eng *ledger.Engine, id string) uint64 {
	t.Helper()
	v, err := eng.NativeBalance(context.Background(), id)
	if err != nil {
		t.Fatalf("native balance %s: %v", id, err)
	}
	return v
}

func protocol(t *testing.T, eng *ledger.Engine) model.Protocol {
	t.Helper()
	p, err := eng.Protocol(context.Background())
	if err != nil {
		t.Fatalf("protocol: %v", err)
	}
	return p
}

func logLen(t *testing.T, eng *ledger.Engine) int {
	t.Helper()
	entries, err := eng.LogEntries(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("log entries: %v", err)
	}
	return len(entries)
}

// openEvent creates event id as admin.
func openEvent(t *testing.T, eng *ledger.Engine, id uint64) {
	t.Helper()
	mustExec(t, eng, admin, ledger.CreateEvent{ID: id, Metadata: "will it rain"})
}

func stake(t *testing.T, eng *ledger.Engine, caller string, eventID uint64, side model.Side, amount uint64) {
	t.Helper()
	mustExec(t, eng, caller, ledger.Stake{EventID: eventID, Side: side, Amount: amount})
}
