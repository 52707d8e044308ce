package dedup

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/manoharb30/insight-lookinsight/internal/contracts"
	"github.com/manoharb30/insight-lookinsight/internal/signalconfig"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

// Result reports the surviving signals and what was removed, with a
// per-type histogram for observability.
type Result struct {
	Unique       []contracts.VerifiedSignal
	RemovedCount int
	ByType       map[contracts.SignalType]int
}

// Deduplicator collapses repeated detections of the same underlying event.
// Ongoing conditions keep only their earliest disclosure; discrete events
// merge when dated within the dedup window of each other.
type Deduplicator struct {
	tables *signalconfig.Tables
	logger *logger.Logger
}

// New creates a deduplicator over the given tables.
func New(tables *signalconfig.Tables, log *logger.Logger) *Deduplicator {
	return &Deduplicator{tables: tables, logger: log}
}

// NormalizeSeverity recomputes a signal's severity from the per-type base
// plus declarative evidence modifiers, clamped to [1,10]. The generator's
// reported severity only nudges the result: if it exceeds the computed
// value by more than 2, the value is bumped by 1. This puts dedup's
// severity tie-break on a consistent scale regardless of upstream noise.
func (d *Deduplicator) NormalizeSeverity(sig contracts.VerifiedSignal) int {
	base, ok := d.tables.BaseSeverity[sig.Type]
	if !ok {
		base = 5
	}

	evidence := strings.ToLower(sig.Evidence)
	modifier := 0
	for _, mod := range d.tables.SeverityModifiers[sig.Type] {
		m := mod.Pattern.FindStringSubmatch(evidence)
		if m == nil {
			continue
		}
		if len(mod.PercentTiers) > 0 && len(m) > 1 {
			if pct, err := strconv.Atoi(m[1]); err == nil {
				for _, tier := range mod.PercentTiers {
					if pct >= tier.MinPercent {
						modifier += tier.Points
						break
					}
				}
			}
			continue
		}
		modifier += mod.Points
	}

	normalized := clampSeverity(base + modifier)
	if sig.Severity > normalized+2 {
		normalized = clampSeverity(normalized + 1)
	}
	return normalized
}

// Deduplicate collapses duplicates within a candidate set. Input order is
// irrelevant: signals are sorted by date before scanning, so the result is
// deterministic however candidates arrived. Inputs are not mutated.
func (d *Deduplicator) Deduplicate(signals []contracts.VerifiedSignal) Result {
	if len(signals) == 0 {
		return Result{ByType: map[contracts.SignalType]int{}}
	}

	// Work on copies with normalized severities.
	working := make([]contracts.VerifiedSignal, len(signals))
	copy(working, signals)
	for i := range working {
		working[i].Severity = d.NormalizeSeverity(working[i])
	}

	// Date-ascending scan order; dateless signals sort last.
	sort.SliceStable(working, func(i, j int) bool {
		return sortKey(working[i]) < sortKey(working[j])
	})

	byType := make(map[contracts.SignalType][]contracts.VerifiedSignal)
	for _, sig := range working {
		byType[sig.Type] = append(byType[sig.Type], sig)
	}

	types := make([]contracts.SignalType, 0, len(byType))
	for st := range byType {
		types = append(types, st)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	unique := make([]contracts.VerifiedSignal, 0, len(working))
	counts := make(map[contracts.SignalType]int)

	for _, st := range types {
		group := byType[st]
		if d.tables.IsOngoing(st) {
			// The condition persists until resolved: every later
			// disclosure restates the earliest one.
			unique = append(unique, group[0])
			counts[st] = 1
			continue
		}

		kept := d.scanDiscrete(group)
		unique = append(unique, kept...)
		counts[st] = len(kept)
	}

	removed := len(signals) - len(unique)
	d.logger.WithFields(map[string]interface{}{
		"input":   len(signals),
		"unique":  len(unique),
		"removed": removed,
	}).Info("Deduplication completed")

	return Result{
		Unique:       unique,
		RemovedCount: removed,
		ByType:       counts,
	}
}

// scanDiscrete walks one type's date-sorted signals, keeping a signal as a
// new event when it is more than the window from every kept signal. A
// signal inside the window replaces its match only on strictly higher
// severity; ties keep the earlier date. Dateless signals are never merged.
func (d *Deduplicator) scanDiscrete(group []contracts.VerifiedSignal) []contracts.VerifiedSignal {
	window := time.Duration(d.tables.Thresholds.DedupWindowDays) * 24 * time.Hour
	kept := make([]contracts.VerifiedSignal, 0, len(group))

	for _, sig := range group {
		sigDate, ok := sig.ParsedDate()
		if !ok {
			kept = append(kept, sig)
			continue
		}

		newEvent := true
		for i := range kept {
			keptDate, ok := kept[i].ParsedDate()
			if !ok {
				continue
			}

			apart := sigDate.Sub(keptDate)
			if apart < 0 {
				apart = -apart
			}
			if apart <= window {
				newEvent = false
				if sig.Severity > kept[i].Severity {
					kept[i] = sig
				}
				break
			}
		}

		if newEvent {
			kept = append(kept, sig)
		}
	}

	return kept
}

func sortKey(sig contracts.VerifiedSignal) string {
	if _, ok := sig.ParsedDate(); !ok {
		return "9999-99-99"
	}
	return sig.Date()
}

func clampSeverity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
