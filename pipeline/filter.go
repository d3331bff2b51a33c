package pipeline

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Thresholds decide which entries of a mirror list are good enough to be considered.
type Thresholds struct {
	// Completion is the minimum completion ratio an entry must report.
	Completion float64
	// MaxDelay is the maximum delay, in seconds, an entry may report.
	MaxDelay int64
	// MaxScore, if positive, rejects entries with a higher (worse) score, or with no score at all.
	MaxScore float64
	// Protocols, if not empty, rejects entries reporting a protocol not in the list. Entries that do not report a
	// protocol are not affected.
	Protocols []string
	// Countries, if not empty, rejects entries whose country code is not in the list.
	Countries []string
}

// Accept returns whether the entry passes the thresholds. Entries missing completion or delay are always rejected.
func (t Thresholds) Accept(e Entry) bool {
	if e.CompletionPct == nil || e.Delay == nil {
		return false
	}

	if !(*e.CompletionPct >= t.Completion && *e.Delay <= t.MaxDelay) {
		return false
	}

	if t.MaxScore > 0 && (e.Score == nil || *e.Score > t.MaxScore) {
		return false
	}

	if e.Protocol != "" && len(t.Protocols) > 0 && !containsFold(t.Protocols, e.Protocol) {
		return false
	}

	if len(t.Countries) > 0 && !containsFold(t.Countries, e.CountryCode) {
		return false
	}

	return true
}

// Filter returns the entries accepted by t, preserving their order.
func Filter(all []Entry, t Thresholds) []Entry {
	list := make([]Entry, 0, len(all))
	for _, entry := range all {
		if !t.Accept(entry) {
			log.Debugf("Filtering out %s", entry.String())
			continue
		}

		list = append(list, entry)
	}

	return list
}

func containsFold(list []string, s string) bool {
	return slices.IndexFunc(list, func(item string) bool {
		return strings.EqualFold(item, s)
	}) != -1
}
