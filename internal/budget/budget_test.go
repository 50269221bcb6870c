package budget

import (
	"testing"

	"pivik/internal/core"
)

func dollars(d int64) core.Money { return core.Money{Cents: d * 100} }

func TestLevelBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want AlertLevel
	}{
		{0, LevelOK},
		{50, LevelOK},
		{50.0001, LevelWarning},
		{90, LevelWarning},
		{90.0001, LevelCritical},
		{100, LevelCritical},
	}
	for _, tt := range tests {
		if got := Level(tt.pct); got != tt.want {
			t.Errorf("Level(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestUsagePercent(t *testing.T) {
	if got := UsagePercent(dollars(15000), dollars(30000)); got != 50 {
		t.Fatalf("got %v, want 50", got)
	}
	if got := UsagePercent(dollars(45000), dollars(30000)); got != 100 {
		t.Fatalf("overspend must clamp to 100, got %v", got)
	}
	if got := UsagePercent(dollars(1), core.Money{}); got != 100 {
		t.Fatalf("zero limit with spend must read 100, got %v", got)
	}
	if got := UsagePercent(core.Money{}, core.Money{}); got != 0 {
		t.Fatalf("zero limit without spend must read 0, got %v", got)
	}
}

func TestRemainingGoesNegative(t *testing.T) {
	if got := Remaining(dollars(31000), dollars(30000)); got.Cents != -100000 {
		t.Fatalf("got %d", got.Cents)
	}
}

func TestProgramSpendExactMatch(t *testing.T) {
	a, b, c := dollars(100), dollars(50), dollars(7)
	invoices := []core.Invoice{
		{Project: core.ProjectFedUp, Amount: &a},
		{Project: "fed up", Amount: &b},
		{Project: core.ProjectFedUp},
		{Project: "", Amount: &c},
	}
	if got := ProgramSpend(invoices, core.ProjectFedUp); got != dollars(100) {
		t.Fatalf("got %v", got)
	}
}

func TestTrackerScenario(t *testing.T) {
	a, b, other := dollars(20000), dollars(7000), dollars(99999)
	invoices := []core.Invoice{
		{ID: 1, Project: core.ProjectFedUp, Amount: &a},
		{ID: 2, Project: core.ProjectFedUp, Amount: &b, Status: core.StatusPaid},
		{ID: 3, Amount: &other},
	}

	st := Tracker{}.Evaluate(invoices)
	if st.Spend != dollars(27000) {
		t.Errorf("spend = %v", st.Spend)
	}
	if st.Percent != 90 {
		t.Errorf("percent = %v, want 90", st.Percent)
	}
	if st.Remaining != dollars(3000) {
		t.Errorf("remaining = %v", st.Remaining)
	}
	if st.Level != LevelWarning {
		t.Errorf("level = %s, want WARNING", st.Level)
	}
	if !st.LowFunds {
		t.Errorf("3000 remaining must trigger low funds")
	}
	if len(st.Invoices) != 2 {
		t.Errorf("expected 2 program invoices, got %d", len(st.Invoices))
	}
}

func TestTrackerCustomConfig(t *testing.T) {
	a := dollars(600)
	st := Tracker{Project: "ARTS", Limit: dollars(1000), LowFundsThreshold: money(dollars(100))}.
		Evaluate([]core.Invoice{{Project: "ARTS", Amount: &a}})
	if st.Level != LevelWarning || st.LowFunds || st.Project != "ARTS" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func money(m core.Money) *core.Money { return &m }

func TestTrackerZeroThresholdIsNotDefaulted(t *testing.T) {
	a := dollars(29000)
	invoices := []core.Invoice{{Project: core.ProjectFedUp, Amount: &a}}

	if st := (Tracker{}).Evaluate(invoices); !st.LowFunds {
		t.Fatalf("nil threshold should use the default and flag 1000 remaining")
	}
	st := Tracker{LowFundsThreshold: money(core.Money{})}.Evaluate(invoices)
	if st.LowFunds {
		t.Errorf("zero threshold must not flag a budget with funds left")
	}

	over := dollars(31000)
	st = Tracker{LowFundsThreshold: money(core.Money{})}.Evaluate([]core.Invoice{{Project: core.ProjectFedUp, Amount: &over}})
	if !st.LowFunds {
		t.Errorf("zero threshold still flags overspend")
	}
}
