// Package budget tracks spend against a capped program budget such as the
// FED UP grant.
package budget

import (
	"math"

	"pivik/internal/core"
)

type AlertLevel string

const (
	LevelOK       AlertLevel = "OK"
	LevelWarning  AlertLevel = "WARNING"
	LevelCritical AlertLevel = "CRITICAL"
)

const (
	warningAbove  = 50.0
	criticalAbove = 90.0
)

var (
	DefaultLimit     = core.Money{Cents: 30000_00}
	DefaultThreshold = core.Money{Cents: 5000_00}
)

type (
	// Tracker evaluates one program. An empty project, a zero limit or a nil
	// threshold fall back to the FED UP defaults. An explicit zero threshold
	// only flags overspend.
	Tracker struct {
		Project           string
		Limit             core.Money
		LowFundsThreshold *core.Money
	}

	Status struct {
		Project   string
		Limit     core.Money
		Spend     core.Money
		Remaining core.Money
		Percent   float64
		Level     AlertLevel
		LowFunds  bool
		Invoices  []core.Invoice
	}
)

// ProgramSpend sums the invoices tagged exactly with project. The match is
// case-sensitive.
func ProgramSpend(invoices []core.Invoice, project string) core.Money {
	var sum core.Money
	for _, inv := range invoices {
		if inv.Project == project {
			sum = sum.Add(core.AmountOrZero(inv.Amount))
		}
	}
	return sum
}

// UsagePercent is spend as a share of limit, capped at 100. A non-positive
// limit reads as fully used once anything is spent.
func UsagePercent(spend, limit core.Money) float64 {
	if limit.Cents <= 0 {
		if spend.Cents > 0 {
			return 100
		}
		return 0
	}
	return math.Min(float64(spend.Cents)*100/float64(limit.Cents), 100)
}

// Remaining is limit minus spend and goes negative on overspend.
func Remaining(spend, limit core.Money) core.Money {
	return limit.Sub(spend)
}

// Level maps a usage percent to its alert band: up to 50 is OK, up to 90 is
// WARNING, above that CRITICAL.
func Level(percent float64) AlertLevel {
	switch {
	case percent > criticalAbove:
		return LevelCritical
	case percent > warningAbove:
		return LevelWarning
	default:
		return LevelOK
	}
}

// LowFunds is independent of Level; a WARNING budget can already be low.
func LowFunds(remaining, threshold core.Money) bool {
	return remaining.Cents < threshold.Cents
}

func (t Tracker) withDefaults() Tracker {
	if t.Project == "" {
		t.Project = core.ProjectFedUp
	}
	if t.Limit.Cents == 0 {
		t.Limit = DefaultLimit
	}
	if t.LowFundsThreshold == nil {
		threshold := DefaultThreshold
		t.LowFundsThreshold = &threshold
	}
	return t
}

// Evaluate computes the program status from the full invoice set.
func (t Tracker) Evaluate(invoices []core.Invoice) Status {
	t = t.withDefaults()
	var program []core.Invoice
	for _, inv := range invoices {
		if inv.Project == t.Project {
			program = append(program, inv)
		}
	}
	spend := ProgramSpend(program, t.Project)
	pct := UsagePercent(spend, t.Limit)
	remaining := Remaining(spend, t.Limit)
	return Status{
		Project:   t.Project,
		Limit:     t.Limit,
		Spend:     spend,
		Remaining: remaining,
		Percent:   pct,
		Level:     Level(pct),
		LowFunds:  LowFunds(remaining, *t.LowFundsThreshold),
		Invoices:  program,
	}
}
