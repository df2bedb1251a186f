package ledger_test

import (
	"context"
	"testing"

	"github.com/roxy/points-engine/internal/ledger"
	"github.com/roxy/points-engine/internal/model"
)

// --- Event lifecycle ---

func TestCreateEvent(t *testing.T) {
	eng, _ := newTestEngine(t)

	expectErr(t, eng, "alice", ledger.CreateEvent{ID: 1}, ledger.ErrNotAdmin)

	rc := mustExec(t, eng, admin, ledger.CreateEvent{ID: 7, Metadata: "rain in SF"})
	if rc.Value != 7 {
		t.Errorf("expected value 7, got %d", rc.Value)
	}
	ev, err := eng.Event(context.Background(), 7)
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if ev.Status != model.EventOpen || ev.Winner != nil || ev.YesPool != 0 || ev.NoPool != 0 {
		t.Errorf("unexpected new event %+v", ev)
	}
	if ev.Creator != admin || ev.Metadata != "rain in SF" {
		t.Errorf("unexpected creator/metadata %+v", ev)
	}

	expectErr(t, eng, admin, ledger.CreateEvent{ID: 7}, ledger.ErrEventIDExists)
}

func TestResolveEvent(t *testing.T) {
	eng, _ := newTestEngine(t)
	openEvent(t, eng, 1)

	expectErr(t, eng, "alice", ledger.ResolveEvent{ID: 1, WinnerIsYes: true}, ledger.ErrNotAdmin)
	expectErr(t, eng, admin, ledger.ResolveEvent{ID: 2, WinnerIsYes: true}, ledger.ErrEventNotFound)

	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: false})
	ev, _ := eng.Event(context.Background(), 1)
	if ev.Status != model.EventResolved || ev.Winner == nil || *ev.Winner {
		t.Errorf("expected resolved with no winning, got %+v", ev)
	}

	expectErr(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: true}, ledger.ErrEventMustBeOpen)
	ev, _ = eng.Event(context.Background(), 1)
	if *ev.Winner {
		t.Errorf("winner must never change after resolution")
	}
}

// --- Staking ---

func TestStake(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice")
	openEvent(t, eng, 1)
	ctx := context.Background()

	rc := mustExec(t, eng, "alice", ledger.Stake{EventID: 1, Side: model.SideYes, Amount: 100})
	stake(t, eng, "alice", 1, model.SideYes, 50)
	stake(t, eng, "alice", 1, model.SideNo, 25)

	if got := account(t, eng, "alice").Points; got != 825 {
		t.Errorf("expected 825 points, got %d", got)
	}
	yes, _ := eng.Stake(ctx, model.StakeKey{EventID: 1, Account: "alice", Side: model.SideYes})
	no, _ := eng.Stake(ctx, model.StakeKey{EventID: 1, Account: "alice", Side: model.SideNo})
	if yes != 150 || no != 25 {
		t.Errorf("expected stakes 150/25, got %d/%d", yes, no)
	}
	ev, _ := eng.Event(ctx, 1)
	if ev.YesPool != 150 || ev.NoPool != 25 {
		t.Errorf("expected pools 150/25, got %d/%d", ev.YesPool, ev.NoPool)
	}
	lt := protocol(t, eng).Lifetime()
	if lt.Yes != 150 || lt.No != 25 {
		t.Errorf("expected lifetime 150/25, got %+v", lt)
	}

	entry, _ := eng.LogEntry(ctx, rc.LogID)
	if entry.Action != "stake-yes" || entry.EventID == nil || *entry.EventID != 1 || *entry.Amount != 100 {
		t.Errorf("unexpected stake log entry %+v", entry)
	}
}

func TestStake_CheckOrder(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice")
	openEvent(t, eng, 1)
	openEvent(t, eng, 2)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 2, WinnerIsYes: true})

	tests := []struct {
		name   string
		caller string
		cmd    ledger.Stake
		want   error
	}{
		{"zero amount before registration", "nobody", ledger.Stake{EventID: 9, Side: model.SideYes}, ledger.ErrInvalidAmount},
		{"bad side", "alice", ledger.Stake{EventID: 1, Side: "maybe", Amount: 1}, ledger.ErrInvalidAmount},
		{"unregistered before missing event", "nobody", ledger.Stake{EventID: 9, Side: model.SideYes, Amount: 1}, ledger.ErrUserNotRegistered},
		{"missing event", "alice", ledger.Stake{EventID: 9, Side: model.SideYes, Amount: 1}, ledger.ErrEventNotFound},
		{"closed before balance", "alice", ledger.Stake{EventID: 2, Side: model.SideYes, Amount: 5000}, ledger.ErrEventNotOpen},
		{"balance", "alice", ledger.Stake{EventID: 1, Side: model.SideNo, Amount: 1001}, ledger.ErrInsufficientPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectErr(t, eng, tt.caller, tt.cmd, tt.want)
		})
	}

	lt := protocol(t, eng).Lifetime()
	if lt.Yes != 0 || lt.No != 0 {
		t.Errorf("rejected stakes must not move counters, got %+v", lt)
	}
}

// --- Settlement ---

func TestClaim_WinnerTakesProportionalPool(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	openEvent(t, eng, 1)
	stake(t, eng, "alice", 1, model.SideYes, 100)
	stake(t, eng, "bob", 1, model.SideNo, 200)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: true})

	rc := mustExec(t, eng, "alice", ledger.Claim{EventID: 1})
	if rc.Value != 300 {
		t.Fatalf("expected reward 300, got %d", rc.Value)
	}

	a := account(t, eng, "alice")
	if a.Points != 1200 {
		t.Errorf("expected 1200 points, got %d", a.Points)
	}
	if a.EarnedPoints != 300 {
		t.Errorf("expected 300 earned, got %d", a.EarnedPoints)
	}
	want := model.Stats{TotalPredictions: 1, Wins: 1, TotalPointsEarned: 300, WinRate: 10000}
	if a.Stats != want {
		t.Errorf("expected stats %+v, got %+v", want, a.Stats)
	}

	// Pools are read after resolution and never reset.
	ev, _ := eng.Event(context.Background(), 1)
	if ev.YesPool != 100 || ev.NoPool != 200 {
		t.Errorf("pools must be untouched, got %d/%d", ev.YesPool, ev.NoPool)
	}
	lt := protocol(t, eng).Lifetime()
	if lt.Yes != 100 || lt.No != 200 {
		t.Errorf("lifetime counters must not decrease, got %+v", lt)
	}

	entry, _ := eng.LogEntry(context.Background(), rc.LogID)
	if entry.Action != "claim" || *entry.Amount != 300 {
		t.Errorf("unexpected claim entry %+v", entry)
	}
}

func TestClaim_SecondClaimFindsNoStake(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	openEvent(t, eng, 1)
	stake(t, eng, "alice", 1, model.SideYes, 100)
	stake(t, eng, "bob", 1, model.SideNo, 200)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: true})

	mustExec(t, eng, "alice", ledger.Claim{EventID: 1})
	expectErr(t, eng, "alice", ledger.Claim{EventID: 1}, ledger.ErrNoStakeFound)

	yes, _ := eng.Stake(context.Background(), model.StakeKey{EventID: 1, Account: "alice", Side: model.SideYes})
	if yes != 0 {
		t.Errorf("claimed stake must be zeroed, got %d", yes)
	}
}

func TestClaim_LoserRecordsLoss(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	openEvent(t, eng, 1)
	stake(t, eng, "alice", 1, model.SideYes, 100)
	stake(t, eng, "bob", 1, model.SideNo, 200)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: false})

	rc := mustExec(t, eng, "alice", ledger.Claim{EventID: 1})
	if rc.Value != 0 {
		t.Errorf("expected zero reward, got %d", rc.Value)
	}
	a := account(t, eng, "alice")
	if a.Stats.Losses != 1 || a.Stats.Wins != 0 || a.Stats.TotalPointsEarned != 0 || a.Stats.WinRate != 0 {
		t.Errorf("unexpected stats %+v", a.Stats)
	}
	if a.Points != 900 || a.EarnedPoints != 0 {
		t.Errorf("expected 900 points and 0 earned, got %d/%d", a.Points, a.EarnedPoints)
	}

	// Bob takes the whole pool.
	rc = mustExec(t, eng, "bob", ledger.Claim{EventID: 1})
	if rc.Value != 300 {
		t.Errorf("expected reward 300, got %d", rc.Value)
	}
}

func TestClaim_BothSidesTruncates(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob", "carol")
	openEvent(t, eng, 1)
	stake(t, eng, "alice", 1, model.SideYes, 10)
	stake(t, eng, "alice", 1, model.SideNo, 5)
	stake(t, eng, "bob", 1, model.SideYes, 20)
	stake(t, eng, "carol", 1, model.SideNo, 7)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: true})

	// total 42, winning pool 30: alice floor(42*10/30) = 14, bob floor(42*20/30) = 28.
	if rc := mustExec(t, eng, "alice", ledger.Claim{EventID: 1}); rc.Value != 14 {
		t.Errorf("expected alice reward 14, got %d", rc.Value)
	}
	if rc := mustExec(t, eng, "bob", ledger.Claim{EventID: 1}); rc.Value != 28 {
		t.Errorf("expected bob reward 28, got %d", rc.Value)
	}
	no, _ := eng.Stake(context.Background(), model.StakeKey{EventID: 1, Account: "alice", Side: model.SideNo})
	if no != 0 {
		t.Errorf("losing-side stake must be zeroed too, got %d", no)
	}
}

func TestClaim_CheckOrder(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	openEvent(t, eng, 1)
	openEvent(t, eng, 2)
	stake(t, eng, "alice", 2, model.SideYes, 10)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 2, WinnerIsYes: false})
	openEvent(t, eng, 3)
	stake(t, eng, "alice", 3, model.SideYes, 10)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 3, WinnerIsYes: true})

	expectErr(t, eng, "alice", ledger.Claim{EventID: 9}, ledger.ErrEventNotFound)
	expectErr(t, eng, "alice", ledger.Claim{EventID: 1}, ledger.ErrEventMustBeResolved)
	// Nobody staked "no" on event 2.
	expectErr(t, eng, "bob", ledger.Claim{EventID: 2}, ledger.ErrNoWinners)
	expectErr(t, eng, "bob", ledger.Claim{EventID: 3}, ledger.ErrNoStakeFound)
}

// --- Payout math ---

func TestPayout(t *testing.T) {
	const maxU = ^uint64(0)
	tests := []struct {
		total, win, pool uint64
		want             uint64
	}{
		{300, 100, 100, 300},
		{42, 10, 30, 14},
		{100, 0, 50, 0},
		{maxU, maxU, maxU, maxU},
		{maxU, 1, 2, maxU / 2},
	}
	for _, tt := range tests {
		got, err := ledger.Payout(tt.total, tt.win, tt.pool)
		if err != nil {
			t.Errorf("Payout(%d,%d,%d): %v", tt.total, tt.win, tt.pool, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Payout(%d,%d,%d) = %d, want %d", tt.total, tt.win, tt.pool, got, tt.want)
		}
	}

	if _, err := ledger.Payout(maxU, 2, 1); err != ledger.ErrArithmeticOverflow {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestFee(t *testing.T) {
	fee, err := ledger.Fee(400_000, 200)
	if err != nil || fee != 8000 {
		t.Errorf("expected fee 8000, got %d (%v)", fee, err)
	}
	fee, _ = ledger.Fee(49, 200)
	if fee != 0 {
		t.Errorf("expected truncated fee 0, got %d", fee)
	}
}
