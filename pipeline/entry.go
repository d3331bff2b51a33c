// Package pipeline contains the building blocks targets compose to turn a raw mirror list into Mirrors: filtering,
// sorting and URL normalization.
package pipeline

import "fmt"

// Entry is a mirror as reported by a mirror list, before validation. Nil fields were not reported by the source.
type Entry struct {
	URL           string   `json:"url"`
	Protocol      string   `json:"protocol"`
	CountryCode   string   `json:"country_code"`
	Score         *float64 `json:"score"`
	Delay         *int64   `json:"delay"`
	CompletionPct *float64 `json:"completion_pct"`
}

func (e Entry) String() string {
	return fmt.Sprintf("score=%s delay=%s completion=%s country=%s url=%s",
		optional(e.Score), optional(e.Delay), optional(e.CompletionPct), e.CountryCode, e.URL)
}

func optional[T int64 | float64](v *T) string {
	if v == nil {
		return "none"
	}

	return fmt.Sprint(*v)
}
