package ledger_test

import (
	"context"
	"testing"

	"github.com/roxy/points-engine/internal/ledger"
	"github.com/roxy/points-engine/internal/model"
	"github.com/roxy/points-engine/internal/store"
)

func membership(t *testing.T, eng *ledger.Engine, guildID uint64, id string) ledger.Membership {
	t.Helper()
	m, err := eng.Membership(context.Background(), model.MemberKey{GuildID: guildID, Account: id})
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	return m
}

func guild(t *testing.T, eng *ledger.Engine, id uint64) model.Guild {
	t.Helper()
	g, err := eng.Guild(context.Background(), id)
	if err != nil {
		t.Fatalf("guild %d: %v", id, err)
	}
	return g
}

func TestCreateGuild(t *testing.T) {
	eng, _ := newTestEngine(t)

	rc := mustExec(t, eng, "alice", ledger.CreateGuild{ID: 5, Name: "oracles"})
	if rc.Value != 5 {
		t.Errorf("expected guild id 5, got %d", rc.Value)
	}
	want := model.Guild{ID: 5, Creator: "alice", Name: "oracles", MemberCount: 1}
	if g := guild(t, eng, 5); g != want {
		t.Errorf("expected %+v, got %+v", want, g)
	}
	if m := membership(t, eng, 5, "alice"); !m.Member {
		t.Errorf("creator must be a member")
	}

	expectErr(t, eng, "bob", ledger.CreateGuild{ID: 5, Name: "dupe"}, ledger.ErrGuildIDExists)
}

func TestJoinLeaveGuild(t *testing.T) {
	eng, _ := newTestEngine(t)
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})

	expectErr(t, eng, "bob", ledger.JoinGuild{GuildID: 2}, ledger.ErrGuildNotFound)
	expectErr(t, eng, "alice", ledger.JoinGuild{GuildID: 1}, ledger.ErrAlreadyAMember)
	expectErr(t, eng, "bob", ledger.LeaveGuild{GuildID: 1}, ledger.ErrNotAMember)

	mustExec(t, eng, "bob", ledger.JoinGuild{GuildID: 1})
	if g := guild(t, eng, 1); g.MemberCount != 2 {
		t.Errorf("expected 2 members, got %d", g.MemberCount)
	}

	mustExec(t, eng, "bob", ledger.LeaveGuild{GuildID: 1})
	if g := guild(t, eng, 1); g.MemberCount != 1 {
		t.Errorf("expected 1 member, got %d", g.MemberCount)
	}

	// Rejoining flips the same record back.
	mustExec(t, eng, "bob", ledger.JoinGuild{GuildID: 1})
	if m := membership(t, eng, 1, "bob"); !m.Member || !m.Recorded {
		t.Errorf("expected recorded member, got %+v", m)
	}
	if m := membership(t, eng, 1, "carol"); m.Member || m.Recorded {
		t.Errorf("expected no record for carol, got %+v", m)
	}
}

func TestGuildDeposit_GateOnLeave(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})
	mustExec(t, eng, "bob", ledger.JoinGuild{GuildID: 1})
	ctx := context.Background()

	mustExec(t, eng, "bob", ledger.DepositToGuild{GuildID: 1, Amount: 400})
	if g := guild(t, eng, 1); g.TotalPoints != 400 {
		t.Errorf("expected pooled 400, got %d", g.TotalPoints)
	}
	if got := account(t, eng, "bob").Points; got != 600 {
		t.Errorf("expected bob 600 points, got %d", got)
	}

	expectErr(t, eng, "bob", ledger.LeaveGuild{GuildID: 1}, ledger.ErrHasDeposits)

	mustExec(t, eng, "bob", ledger.WithdrawFromGuild{GuildID: 1, Amount: 400})
	dep, _ := eng.GuildDeposit(ctx, model.MemberKey{GuildID: 1, Account: "bob"})
	if dep != 0 {
		t.Errorf("expected deposit 0, got %d", dep)
	}
	mustExec(t, eng, "bob", ledger.LeaveGuild{GuildID: 1})

	m := membership(t, eng, 1, "bob")
	if m.Member || !m.Recorded {
		t.Errorf("membership must read explicitly false, got %+v", m)
	}
	if got := account(t, eng, "bob").Points; got != model.DefaultStartingPoints {
		t.Errorf("expected bob points restored, got %d", got)
	}
}

func TestGuildDeposit_Errors(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})
	mustExec(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 100})

	expectErr(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 0}, ledger.ErrInvalidAmount)
	expectErr(t, eng, "alice", ledger.DepositToGuild{GuildID: 2, Amount: 1}, ledger.ErrGuildNotFound)
	expectErr(t, eng, "bob", ledger.DepositToGuild{GuildID: 1, Amount: 1}, ledger.ErrNotAMember)
	expectErr(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 901}, ledger.ErrInsufficientPoints)

	expectErr(t, eng, "alice", ledger.WithdrawFromGuild{GuildID: 1, Amount: 0}, ledger.ErrInvalidAmount)
	expectErr(t, eng, "alice", ledger.WithdrawFromGuild{GuildID: 2, Amount: 1}, ledger.ErrGuildNotFound)
	expectErr(t, eng, "bob", ledger.WithdrawFromGuild{GuildID: 1, Amount: 1}, ledger.ErrNotAMember)
	expectErr(t, eng, "alice", ledger.WithdrawFromGuild{GuildID: 1, Amount: 101}, ledger.ErrInsufficientDeposits)
}

func TestGuildStake_SharesEventPools(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})
	mustExec(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 500})
	openEvent(t, eng, 1)
	ctx := context.Background()

	rc := mustExec(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 1, Side: model.SideYes, Amount: 100})
	stake(t, eng, "bob", 1, model.SideNo, 300)

	ev, _ := eng.Event(ctx, 1)
	if ev.YesPool != 100 || ev.NoPool != 300 {
		t.Errorf("expected pools 100/300, got %d/%d", ev.YesPool, ev.NoPool)
	}
	gs, _ := eng.GuildStake(ctx, model.GuildStakeKey{GuildID: 1, EventID: 1, Side: model.SideYes})
	if gs != 100 {
		t.Errorf("expected guild stake 100, got %d", gs)
	}
	if g := guild(t, eng, 1); g.TotalPoints != 400 {
		t.Errorf("expected pooled 400, got %d", g.TotalPoints)
	}
	lt := protocol(t, eng).Lifetime()
	if lt.GuildYes != 100 || lt.Yes != 0 || lt.No != 300 {
		t.Errorf("unexpected lifetime counters %+v", lt)
	}
	entry, _ := eng.LogEntry(ctx, rc.LogID)
	if entry.Action != "guild-stake-yes" {
		t.Errorf("expected guild-stake-yes, got %s", entry.Action)
	}

	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: true})

	expectErr(t, eng, "bob", ledger.GuildClaim{GuildID: 1, EventID: 1}, ledger.ErrNotAMember)
	rc = mustExec(t, eng, "alice", ledger.GuildClaim{GuildID: 1, EventID: 1})
	if rc.Value != 400 {
		t.Fatalf("expected guild reward 400, got %d", rc.Value)
	}
	if g := guild(t, eng, 1); g.TotalPoints != 800 {
		t.Errorf("expected pooled 800, got %d", g.TotalPoints)
	}
	if a := account(t, eng, "alice"); a.EarnedPoints != 0 || a.Stats.TotalPredictions != 0 {
		t.Errorf("guild claims must not touch member accounts, got %+v", a)
	}
	st, _ := eng.GuildStats(ctx, 1)
	want := model.Stats{TotalPredictions: 1, Wins: 1, TotalPointsEarned: 400, WinRate: 10000}
	if st != want {
		t.Errorf("expected guild stats %+v, got %+v", want, st)
	}

	expectErr(t, eng, "alice", ledger.GuildClaim{GuildID: 1, EventID: 1}, ledger.ErrNoStakeFound)
}

func TestGuildStake_CheckOrder(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice")
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})
	mustExec(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 50})
	openEvent(t, eng, 1)
	openEvent(t, eng, 2)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 2, WinnerIsYes: true})

	yes := model.SideYes
	expectErr(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 1, Side: yes}, ledger.ErrInvalidAmount)
	expectErr(t, eng, "alice", ledger.GuildStake{GuildID: 9, EventID: 1, Side: yes, Amount: 1}, ledger.ErrGuildNotFound)
	expectErr(t, eng, "bob", ledger.GuildStake{GuildID: 1, EventID: 1, Side: yes, Amount: 1}, ledger.ErrNotAMember)
	expectErr(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 9, Side: yes, Amount: 1}, ledger.ErrEventNotFound)
	expectErr(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 2, Side: yes, Amount: 1}, ledger.ErrEventNotOpen)
	expectErr(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 1, Side: yes, Amount: 51}, ledger.ErrInsufficientPoints)
}

func TestGuildWithdraw_AfterLoss(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})
	mustExec(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 100})
	openEvent(t, eng, 1)
	mustExec(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 1, Side: model.SideNo, Amount: 60})
	stake(t, eng, "bob", 1, model.SideYes, 10)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: true})

	rc := mustExec(t, eng, "alice", ledger.GuildClaim{GuildID: 1, EventID: 1})
	if rc.Value != 0 {
		t.Errorf("expected zero reward for losing guild stake, got %d", rc.Value)
	}
	st, _ := eng.GuildStats(context.Background(), 1)
	if st.Losses != 1 {
		t.Errorf("expected 1 guild loss, got %+v", st)
	}

	// The deposit still reads 100 but only 40 remains pooled.
	expectErr(t, eng, "alice", ledger.WithdrawFromGuild{GuildID: 1, Amount: 100}, ledger.ErrInsufficientPoints)
	mustExec(t, eng, "alice", ledger.WithdrawFromGuild{GuildID: 1, Amount: 40})
	if g := guild(t, eng, 1); g.TotalPoints != 0 {
		t.Errorf("expected empty pool, got %d", g.TotalPoints)
	}
}

func TestGuildClaim_CheckOrder(t *testing.T) {
	eng, _ := newTestEngine(t)
	register(t, eng, "alice", "bob")
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})
	mustExec(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 100})

	openEvent(t, eng, 1)
	openEvent(t, eng, 2)
	mustExec(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 2, Side: model.SideYes, Amount: 10})
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 2, WinnerIsYes: false})
	openEvent(t, eng, 3)
	stake(t, eng, "bob", 3, model.SideYes, 10)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 3, WinnerIsYes: true})

	tests := []struct {
		name   string
		caller string
		cmd    ledger.GuildClaim
		want   error
	}{
		{"guild first", "bob", ledger.GuildClaim{GuildID: 9, EventID: 9}, ledger.ErrGuildNotFound},
		{"then membership", "bob", ledger.GuildClaim{GuildID: 1, EventID: 9}, ledger.ErrNotAMember},
		{"then event", "alice", ledger.GuildClaim{GuildID: 1, EventID: 9}, ledger.ErrEventNotFound},
		{"open event", "alice", ledger.GuildClaim{GuildID: 1, EventID: 1}, ledger.ErrEventMustBeResolved},
		// Nobody staked "no" on event 2.
		{"empty winning pool", "alice", ledger.GuildClaim{GuildID: 1, EventID: 2}, ledger.ErrNoWinners},
		{"no guild stake", "alice", ledger.GuildClaim{GuildID: 1, EventID: 3}, ledger.ErrNoStakeFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectErr(t, eng, tt.caller, tt.cmd, tt.want)
		})
	}
}

func TestGuildClaim_StatsOverflowRollsBack(t *testing.T) {
	eng, ms := newTestEngine(t)
	ctx := context.Background()
	register(t, eng, "alice", "bob")
	mustExec(t, eng, "alice", ledger.CreateGuild{ID: 1, Name: "g"})
	mustExec(t, eng, "alice", ledger.DepositToGuild{GuildID: 1, Amount: 100})
	openEvent(t, eng, 1)
	mustExec(t, eng, "alice", ledger.GuildStake{GuildID: 1, EventID: 1, Side: model.SideYes, Amount: 10})
	stake(t, eng, "bob", 1, model.SideNo, 10)
	mustExec(t, eng, admin, ledger.ResolveEvent{ID: 1, WinnerIsYes: true})

	err := ms.Update(ctx, func(tx store.Tx) error {
		return tx.PutGuildStats(ctx, 1, model.Stats{TotalPredictions: 1, Wins: 1, TotalPointsEarned: ^uint64(0), WinRate: 10000})
	})
	if err != nil {
		t.Fatalf("seed stats: %v", err)
	}

	expectErr(t, eng, "alice", ledger.GuildClaim{GuildID: 1, EventID: 1}, ledger.ErrArithmeticOverflow)

	if g := guild(t, eng, 1); g.TotalPoints != 90 {
		t.Errorf("failed claim must not pay the guild, got %d pooled", g.TotalPoints)
	}
	gs, _ := eng.GuildStake(ctx, model.GuildStakeKey{GuildID: 1, EventID: 1, Side: model.SideYes})
	if gs != 10 {
		t.Errorf("failed claim must keep the guild stake, got %d", gs)
	}
}
