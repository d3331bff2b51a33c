package pipeline

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

type SortingStrategy string

const (
	Random    SortingStrategy = "random"
	DelayAsc  SortingStrategy = "delay_asc"
	DelayDesc SortingStrategy = "delay_desc"
	ScoreAsc  SortingStrategy = "score_asc"
	ScoreDesc SortingStrategy = "score_desc"
)

var strategies = []SortingStrategy{Random, DelayAsc, DelayDesc, ScoreAsc, ScoreDesc}

func ParseSortingStrategy(s string) (SortingStrategy, error) {
	strategy := SortingStrategy(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(strategies, strategy) {
		return "", fmt.Errorf("unknown sorting strategy %q, expected one of %v", s, strategies)
	}

	return strategy, nil
}

func (s SortingStrategy) String() string {
	return string(s)
}

// Set and Type implement pflag.Value.
func (s *SortingStrategy) Set(value string) error {
	parsed, err := ParseSortingStrategy(value)
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}

func (s *SortingStrategy) Type() string {
	return "strategy"
}

func (s *SortingStrategy) UnmarshalYAML(node *yaml.Node) error {
	var value string
	if err := node.Decode(&value); err != nil {
		return err
	}

	return s.Set(value)
}

// Sort orders entries in place.
// Entries missing the field being sorted on, or holding NaN, are placed after every entry that has it, regardless of
// the direction. Entries missing it are left in no particular order among themselves.
func Sort(entries []Entry, strategy SortingStrategy) {
	switch strategy {
	case Random:
		rand.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
	case DelayAsc:
		slices.SortFunc(entries, func(a, b Entry) bool {
			return less(a.Delay, b.Delay, false)
		})
	case DelayDesc:
		slices.SortFunc(entries, func(a, b Entry) bool {
			return less(a.Delay, b.Delay, true)
		})
	case ScoreAsc:
		slices.SortFunc(entries, func(a, b Entry) bool {
			return less(a.Score, b.Score, false)
		})
	case ScoreDesc:
		slices.SortFunc(entries, func(a, b Entry) bool {
			return less(a.Score, b.Score, true)
		})
	}
}

func less[T int64 | float64](a, b *T, descending bool) bool {
	aOk := a != nil && !math.IsNaN(float64(*a))
	bOk := b != nil && !math.IsNaN(float64(*b))

	switch {
	case !aOk:
		return false
	case !bOk:
		return true
	case descending:
		return *a > *b
	default:
		return *a < *b
	}
}
