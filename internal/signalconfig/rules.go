package signalconfig

import "github.com/manoharb30/insight-lookinsight/internal/contracts"

// ValidationRule is the deterministic per-type rule set evaluated in
// validation Stage A. Phrase matching is case-insensitive substring:
// at least one MustContainAny phrase has to appear in the evidence, and
// none of MustNotContain may appear.
type ValidationRule struct {
	MustContainAny []string
	MustNotContain []string
	RequiresPerson bool
}

func defaultRules() map[contracts.SignalType]ValidationRule {
	return map[contracts.SignalType]ValidationRule{
		contracts.GoingConcern: {
			MustContainAny: []string{"going concern", "substantial doubt", "ability to continue"},
		},
		contracts.BankruptcyFiling: {
			MustContainAny: []string{"chapter 11", "chapter 7", "bankruptcy", "petition"},
		},
		contracts.CEODeparture: {
			MustContainAny: []string{"resign", "depart", "retire", "terminat", "step down", "stepped down", "separation"},
			MustNotContain: []string{"appointed", "promoted"},
			RequiresPerson: true,
		},
		contracts.CFODeparture: {
			MustContainAny: []string{"resign", "depart", "retire", "terminat", "step down", "stepped down", "separation"},
			MustNotContain: []string{"appointed", "promoted"},
			RequiresPerson: true,
		},
		contracts.BoardResignation: {
			MustContainAny: []string{"resign", "depart", "step down", "stepped down"},
			MustNotContain: []string{"appointed", "elected", "promoted"},
			RequiresPerson: true,
		},
		contracts.MassLayoffs: {
			MustContainAny: []string{"layoff", "workforce reduction", "reduction in force", "headcount", "positions", "employees"},
		},
		contracts.DebtDefault: {
			MustContainAny: []string{"default", "missed payment", "acceleration", "forbearance"},
		},
		contracts.CovenantViolation: {
			MustContainAny: []string{"covenant", "waiver", "breach"},
		},
		contracts.AuditorChange: {
			MustContainAny: []string{"auditor", "accounting firm", "accountant"},
		},
		contracts.DelistingWarning: {
			MustContainAny: []string{"delist", "listing", "compliance", "minimum bid"},
		},
		contracts.CreditDowngrade: {
			MustContainAny: []string{"downgrade", "rating"},
		},
		contracts.AssetSale: {
			MustContainAny: []string{"sale", "sell", "divest", "disposition"},
		},
		contracts.Restructuring: {
			MustContainAny: []string{"restructur", "reorganiz", "exchange offer", "cost reduction"},
		},
		contracts.SECInvestigation: {
			MustContainAny: []string{"sec", "subpoena", "investigation", "wells notice", "enforcement"},
		},
		contracts.MaterialWeakness: {
			MustContainAny: []string{"material weakness", "internal control", "disclosure controls"},
		},
		contracts.EquityDilution: {
			MustContainAny: []string{"offering", "issuance", "dilut", "at-the-market", "shares"},
		},
	}
}
