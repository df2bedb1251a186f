package ledger_test

import (
	"testing"

	"github.com/roxy/points-engine/internal/ledger"
	"github.com/roxy/points-engine/internal/model"
)

func TestMintAdminPoints(t *testing.T) {
	eng, _ := newTestEngine(t)

	expectErr(t, eng, "alice", ledger.MintAdminPoints{Amount: 10}, ledger.ErrNotAdmin)
	expectErr(t, eng, admin, ledger.MintAdminPoints{Amount: 0}, ledger.ErrInvalidAmount)
	expectErr(t, eng, admin, ledger.MintAdminPoints{Amount: 10}, ledger.ErrUserNotRegistered)

	register(t, eng, admin)
	mustExec(t, eng, admin, ledger.MintAdminPoints{Amount: 5000})

	a := account(t, eng, admin)
	if a.Points != 6000 || a.EarnedPoints != 0 {
		t.Errorf("expected 6000 points and 0 earned, got %d/%d", a.Points, a.EarnedPoints)
	}
	if got := protocol(t, eng).TotalAdminMinted; got != 5000 {
		t.Errorf("expected minted 5000, got %d", got)
	}

	expectErr(t, eng, admin, ledger.MintAdminPoints{Amount: ^uint64(0)}, ledger.ErrArithmeticOverflow)
	if got := protocol(t, eng).TotalAdminMinted; got != 5000 {
		t.Errorf("overflowed mint must not count, got %d", got)
	}
}

func TestBuyAdminPoints(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, admin, "alice")
	fund(t, eng, "alice", 300_000)

	expectErr(t, eng, "alice", ledger.BuyAdminPoints{Points: 0}, ledger.ErrInvalidAmount)
	expectErr(t, eng, "bob", ledger.BuyAdminPoints{Points: 1}, ledger.ErrUserNotRegistered)
	expectErr(t, eng, "alice", ledger.BuyAdminPoints{Points: 1001}, ledger.ErrInsufficientPoints)

	rc := mustExec(t, eng, "alice", ledger.BuyAdminPoints{Points: 200})
	if rc.Value != 200*model.DefaultAdminPointPrice {
		t.Errorf("expected cost %d, got %d", 200*model.DefaultAdminPointPrice, rc.Value)
	}

	if got := account(t, eng, admin).Points; got != 800 {
		t.Errorf("expected admin 800 points, got %d", got)
	}
	a := account(t, eng, "alice")
	if a.Points != 1200 || a.EarnedPoints != 0 {
		t.Errorf("expected alice 1200 points and 0 earned, got %d/%d", a.Points, a.EarnedPoints)
	}
	if got := protocol(t, eng).Treasury; got != 200_000 {
		t.Errorf("expected treasury 200000, got %d", got)
	}
	if got := native(t, eng, admin); got != 0 {
		t.Errorf("payment must go to the treasury, admin got %d", got)
	}

	expectErr(t, eng, "alice", ledger.BuyAdminPoints{Points: 101}, ledger.ErrTransferFailed)
}

func TestWithdrawProtocolFees(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, admin, "alice")
	fund(t, eng, "alice", 50_000)
	mustExec(t, eng, "alice", ledger.BuyAdminPoints{Points: 50})

	expectErr(t, eng, "alice", ledger.WithdrawProtocolFees{Amount: 1}, ledger.ErrNotAdmin)
	expectErr(t, eng, admin, ledger.WithdrawProtocolFees{Amount: 0}, ledger.ErrInvalidAmount)
	expectErr(t, eng, admin, ledger.WithdrawProtocolFees{Amount: 50_001}, ledger.ErrInsufficientTreasury)

	mustExec(t, eng, admin, ledger.WithdrawProtocolFees{Amount: 20_000})
	if got := protocol(t, eng).Treasury; got != 30_000 {
		t.Errorf("expected treasury 30000, got %d", got)
	}
	if got := native(t, eng, admin); got != 20_000 {
		t.Errorf("expected admin native 20000, got %d", got)
	}
	if got := native(t, eng, ledger.CustodyAccount); got != 30_000 {
		t.Errorf("custody must mirror treasury, got %d", got)
	}
}

func TestSetProtocolFeeBps_Cap(t *testing.T) {
	eng, _ := newTestEngine(t)

	expectErr(t, eng, "alice", ledger.SetProtocolFeeBps{Value: 100}, ledger.ErrNotAdmin)
	expectErr(t, eng, admin, ledger.SetProtocolFeeBps{Value: 1001}, ledger.ErrInvalidAmount)
	mustExec(t, eng, admin, ledger.SetProtocolFeeBps{Value: 1000})

	if got := protocol(t, eng).ProtocolFeeBps; got != 1000 {
		t.Errorf("expected 1000 bps, got %d", got)
	}
}

func TestSetters(t *testing.T) {
	eng, _ := newTestEngine(t)

	expectErr(t, eng, admin, ledger.SetAdminPointPrice{Value: 0}, ledger.ErrInvalidAmount)

	cmds := []ledger.Command{
		ledger.SetMinEarnedForSell{Value: 1},
		ledger.SetListingFee{Value: 2},
		ledger.SetAdminPointPrice{Value: 3},
		ledger.SetStartingPoints{Value: 4},
	}
	for _, cmd := range cmds {
		expectErr(t, eng, "alice", cmd, ledger.ErrNotAdmin)
		mustExec(t, eng, admin, cmd)
	}

	p := protocol(t, eng)
	if p.MinEarnedForSell != 1 || p.ListingFee != 2 || p.AdminPointPrice != 3 || p.StartingPoints != 4 {
		t.Errorf("unexpected config %+v", p)
	}
}

func TestTransferAdmin(t *testing.T) {
	eng, _ := newTestEngine(t)

	expectErr(t, eng, "alice", ledger.TransferAdmin{NewAdmin: "alice"}, ledger.ErrNotAdmin)
	expectErr(t, eng, admin, ledger.TransferAdmin{NewAdmin: ""}, ledger.ErrInvalidAmount)
	mustExec(t, eng, admin, ledger.TransferAdmin{NewAdmin: "alice"})

	if got := protocol(t, eng).Admin; got != "alice" {
		t.Errorf("expected admin alice, got %s", got)
	}
	expectErr(t, eng, admin, ledger.CreateEvent{ID: 1}, ledger.ErrNotAdmin)
	mustExec(t, eng, "alice", ledger.CreateEvent{ID: 1})
}
