package pipeline_test

import (
	"math"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"roob.re/mirrorrank/pipeline"
)

func f(v float64) *float64 { return &v }
func i(v int64) *int64     { return &v }

func urls(entries []pipeline.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.URL)
	}
	return out
}

func TestThresholds_Accept(t *testing.T) {
	t.Parallel()

	thresholds := pipeline.Thresholds{Completion: 90, MaxDelay: 20}

	for _, tc := range []struct {
		name     string
		entry    pipeline.Entry
		expected bool
	}{
		{name: "Good", entry: pipeline.Entry{CompletionPct: f(99), Delay: i(10)}, expected: true},
		{name: "On_Thresholds", entry: pipeline.Entry{CompletionPct: f(90), Delay: i(20)}, expected: true},
		{name: "Incomplete", entry: pipeline.Entry{CompletionPct: f(50), Delay: i(5)}, expected: false},
		{name: "Delayed", entry: pipeline.Entry{CompletionPct: f(100), Delay: i(21)}, expected: false},
		{name: "No_Completion", entry: pipeline.Entry{Delay: i(1)}, expected: false},
		{name: "No_Delay", entry: pipeline.Entry{CompletionPct: f(100)}, expected: false},
		{name: "Nothing", entry: pipeline.Entry{}, expected: false},
		{name: "NaN_Completion", entry: pipeline.Entry{CompletionPct: f(math.NaN()), Delay: i(1)}, expected: false},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := thresholds.Accept(tc.entry); got != tc.expected {
				t.Fatalf("expected %v for %s, got %v", tc.expected, tc.entry.String(), got)
			}
		})
	}
}

func TestThresholds_Accept_Optional_Filters(t *testing.T) {
	t.Parallel()

	base := pipeline.Entry{CompletionPct: f(1), Delay: i(0), Score: f(2), Protocol: "https", CountryCode: "DE"}
	thresholds := pipeline.Thresholds{Completion: 1, MaxDelay: 10, MaxScore: 5, Protocols: []string{"http", "https"}, Countries: []string{"de", "fr"}}

	if !thresholds.Accept(base) {
		t.Fatalf("expected %s to be accepted", base.String())
	}

	for _, tc := range []struct {
		name   string
		mutate func(e *pipeline.Entry)
		accept bool
	}{
		{name: "Rsync", mutate: func(e *pipeline.Entry) { e.Protocol = "rsync" }},
		{name: "No_Protocol", mutate: func(e *pipeline.Entry) { e.Protocol = "" }, accept: true},
		{name: "Other_Country", mutate: func(e *pipeline.Entry) { e.CountryCode = "US" }},
		{name: "No_Country", mutate: func(e *pipeline.Entry) { e.CountryCode = "" }},
		{name: "Bad_Score", mutate: func(e *pipeline.Entry) { e.Score = f(6) }},
		{name: "No_Score", mutate: func(e *pipeline.Entry) { e.Score = nil }},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entry := base
			tc.mutate(&entry)
			if got := thresholds.Accept(entry); got != tc.accept {
				t.Fatalf("expected %v for %s, got %v", tc.accept, entry.String(), got)
			}
		})
	}
}

func TestFilter_Invariant(t *testing.T) {
	t.Parallel()

	var all []pipeline.Entry
	for c := 0; c <= 100; c += 5 {
		for d := int64(0); d <= 100; d += 7 {
			all = append(all, pipeline.Entry{CompletionPct: f(float64(c)), Delay: i(d)})
		}
	}
	all = append(all, pipeline.Entry{Delay: i(0)}, pipeline.Entry{CompletionPct: f(100)})

	thresholds := pipeline.Thresholds{Completion: 60, MaxDelay: 50}
	accepted := pipeline.Filter(all, thresholds)
	if len(accepted) == 0 {
		t.Fatal("expected some entries to be accepted")
	}

	for _, e := range accepted {
		if *e.CompletionPct < thresholds.Completion || *e.Delay > thresholds.MaxDelay {
			t.Fatalf("accepted entry violates thresholds: %s", e.String())
		}
	}
}

func TestSort_Delay_Reversed(t *testing.T) {
	t.Parallel()

	entries := []pipeline.Entry{
		{URL: "c", Delay: i(30)},
		{URL: "a", Delay: i(10)},
		{URL: "d", Delay: i(40)},
		{URL: "b", Delay: i(20)},
	}

	asc := append([]pipeline.Entry(nil), entries...)
	pipeline.Sort(asc, pipeline.DelayAsc)

	desc := append([]pipeline.Entry(nil), entries...)
	pipeline.Sort(desc, pipeline.DelayDesc)

	if got := strings.Join(urls(asc), ""); got != "abcd" {
		t.Fatalf("unexpected ascending order %q", got)
	}

	for n := range asc {
		if asc[n].URL != desc[len(desc)-1-n].URL {
			t.Fatalf("descending order %v is not the reverse of %v", urls(desc), urls(asc))
		}
	}
}

func TestSort_Score(t *testing.T) {
	t.Parallel()

	entries := []pipeline.Entry{
		{URL: "b", Score: f(2.5)},
		{URL: "none"},
		{URL: "a", Score: f(0.5)},
		{URL: "nan", Score: f(math.NaN())},
		{URL: "c", Score: f(7)},
	}

	pipeline.Sort(entries, pipeline.ScoreAsc)
	if got := strings.Join(urls(entries[:3]), ""); got != "abc" {
		t.Fatalf("unexpected ascending order %v", urls(entries))
	}

	pipeline.Sort(entries, pipeline.ScoreDesc)
	if got := strings.Join(urls(entries[:3]), ""); got != "cba" {
		t.Fatalf("unexpected descending order %v", urls(entries))
	}

	for _, e := range entries[3:] {
		if e.URL != "none" && e.URL != "nan" {
			t.Fatalf("expected incomparable entries last, got %v", urls(entries))
		}
	}
}

func TestSort_Random_Is_Permutation(t *testing.T) {
	t.Parallel()

	var entries []pipeline.Entry
	for n := 0; n < 50; n++ {
		entries = append(entries, pipeline.Entry{URL: string(rune('A' + n))})
	}

	shuffled := append([]pipeline.Entry(nil), entries...)
	pipeline.Sort(shuffled, pipeline.Random)

	seen := map[string]int{}
	for _, e := range shuffled {
		seen[e.URL]++
	}

	if len(shuffled) != len(entries) || len(seen) != len(entries) {
		t.Fatalf("random sort is not a permutation: %v", urls(shuffled))
	}

	for _, e := range entries {
		if seen[e.URL] != 1 {
			t.Fatalf("entry %q seen %d times", e.URL, seen[e.URL])
		}
	}
}

func TestSortingStrategy_Parse(t *testing.T) {
	t.Parallel()

	var s pipeline.SortingStrategy
	if err := s.Set("Delay_Desc"); err != nil || s != pipeline.DelayDesc {
		t.Fatalf("expected delay_desc, got %q (%v)", s, err)
	}

	if err := s.Set("fastest"); err == nil {
		t.Fatal("expected unknown strategy to be rejected")
	}

	var config struct {
		SortBy pipeline.SortingStrategy `yaml:"sort_by"`
	}
	if err := yaml.Unmarshal([]byte("sort_by: score_desc"), &config); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}

	if config.SortBy != pipeline.ScoreDesc {
		t.Fatalf("expected score_desc, got %q", config.SortBy)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	entries := []pipeline.Entry{
		{URL: "https://b.example.org/archlinux/", CountryCode: "FR"},
		{URL: "not a url"},
		{URL: "https://a.example.org/", CountryCode: ""},
		{URL: "https://c.example.org/%zz"},
		{URL: "https://d.example.org/", CountryCode: "ZZ"},
	}

	mirrors := pipeline.Normalize(entries, "core/os/x86_64/core.db")
	if len(mirrors) != 3 {
		t.Fatalf("expected 3 mirrors, got %d", len(mirrors))
	}

	if mirrors[0].URLToTest.String() != "https://b.example.org/archlinux/core/os/x86_64/core.db" {
		t.Fatalf("unexpected url to test %s", mirrors[0].URLToTest.String())
	}

	if mirrors[0].Country == nil || mirrors[0].Country.Code != "FR" {
		t.Fatalf("expected FR, got %v", mirrors[0].Country)
	}

	if mirrors[1].Country != nil || mirrors[2].Country != nil {
		t.Fatalf("expected no country for empty and unknown codes")
	}
}

func TestParseSeparated(t *testing.T) {
	t.Parallel()

	input := "# header\n" +
		"https://a.example.org/\n" +
		"\n" +
		"DE\thttps://b.example.org/\n" +
		"US\tSomething\thttps://c.example.org/\n" +
		"FR\t\n"

	entries, err := pipeline.ParseSeparated(strings.NewReader(input), "\t", "#")
	if err != nil {
		t.Fatal(err)
	}

	expected := []pipeline.Entry{
		{URL: "https://a.example.org/"},
		{URL: "https://b.example.org/", CountryCode: "DE"},
		{URL: "https://c.example.org/", CountryCode: "US"},
	}

	if len(entries) != len(expected) {
		t.Fatalf("expected %d entries, got %v", len(expected), entries)
	}

	for n := range expected {
		if entries[n].URL != expected[n].URL || entries[n].CountryCode != expected[n].CountryCode {
			t.Fatalf("entry %d: expected %s, got %s", n, expected[n].String(), entries[n].String())
		}
	}
}

func TestParseSeparated_Long_Line(t *testing.T) {
	t.Parallel()

	input := "https://a.example.org/\n" +
		strings.Repeat("x", 70<<10) + "\n" +
		"DE\thttps://b.example.org/"

	entries, err := pipeline.ParseSeparated(strings.NewReader(input), "\t", "#")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[2].URL != "https://b.example.org/" || entries[2].CountryCode != "DE" {
		t.Fatalf("unexpected last entry %s", entries[2].String())
	}

	mirrors := pipeline.Normalize(entries, "")
	if len(mirrors) != 2 {
		t.Fatalf("expected the long line to be dropped, got %d mirrors", len(mirrors))
	}
}
