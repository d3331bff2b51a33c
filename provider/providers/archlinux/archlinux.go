// Package archlinux implements a target that ranks Arch Linux mirrors from the mirror status JSON API.
package archlinux

import (
	"fmt"

	"github.com/spf13/pflag"

	"roob.re/mirrorrank/client"
	"roob.re/mirrorrank/fetcher"
	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/pipeline"
	"roob.re/mirrorrank/progress"
	"roob.re/mirrorrank/provider/types"
)

var (
	// StatusSource serves every mirror. The primary is a cache run by CachyOS in front of archlinux.org.
	StatusSource = fetcher.Source{
		Primary:  "https://cachyos.org/archlinuxmirrorlist/api/status",
		Fallback: "https://archlinux.org/mirrors/status/json/",
	}

	// Tier1Source serves only tier 1 mirrors.
	Tier1Source = fetcher.Source{
		Primary:  "https://cachyos.org/archlinuxmirrorlist/api/tier1",
		Fallback: "https://archlinux.org/mirrors/status/tier/1/json/",
	}
)

type Config struct {
	types.Common `yaml:",inline"`

	// Completion is the minimum completion ratio, from 0 to 1, a mirror must report.
	Completion float64 `yaml:"completion"`
	// MaxDelay is the maximum delay, in seconds, a mirror may report.
	MaxDelay      int64                    `yaml:"max_delay"`
	MaxScore      float64                  `yaml:"max_score"`
	SortBy        pipeline.SortingStrategy `yaml:"sort_by"`
	FirstTierOnly bool                     `yaml:"first_tier_only"`
	Protocols     []string                 `yaml:"protocols"`
	Countries     []string                 `yaml:"countries"`
}

func DefaultConfig() interface{} {
	return &Config{
		Common:     types.DefaultCommon("extra/os/x86_64/extra.files"),
		Completion: 1,
		MaxDelay:   86400,
		SortBy:     pipeline.ScoreAsc,
		Protocols:  []string{"http", "https"},
	}
}

func BindFlags(conf interface{}, flags *pflag.FlagSet) {
	c := conf.(*Config)

	c.Common.BindFlags(flags)
	flags.Float64Var(&c.Completion, "completion", c.Completion, "Minimum completion ratio (0 to 1) of a mirror")
	flags.Int64Var(&c.MaxDelay, "max-delay", c.MaxDelay, "Maximum delay, in seconds, of a mirror")
	flags.Float64Var(&c.MaxScore, "max-score", c.MaxScore, "Maximum score of a mirror, lower is better. 0 disables the check")
	flags.Var(&c.SortBy, "sort-mirrors-by", "Order in which mirrors are tested: random, delay_asc, delay_desc, score_asc or score_desc")
	flags.BoolVar(&c.FirstTierOnly, "fetch-first-tier-only", c.FirstTierOnly, "Only consider tier 1 mirrors")
	flags.StringSliceVar(&c.Protocols, "protocols", c.Protocols, "Protocols a mirror may be reached with")
	flags.StringSliceVar(&c.Countries, "countries", c.Countries, "Country codes to consider mirrors from. Empty means all")
}

type Target struct {
	Config
	Fetcher fetcher.Fetcher
	Source  fetcher.Source
}

func New(conf interface{}, env types.Env) (types.Target, error) {
	acConfig, ok := conf.(*Config)
	if !ok {
		return nil, fmt.Errorf("internal error: supplied config is not of the expected type")
	}

	if acConfig.Completion < 0 || acConfig.Completion > 1 {
		return nil, fmt.Errorf("completion must be between 0 and 1, got %v", acConfig.Completion)
	}

	source := StatusSource
	if acConfig.FirstTierOnly {
		source = Tier1Source
	}

	httpClient := env.Client
	if httpClient == nil {
		httpClient = client.New(client.Config{})
	}

	return &Target{
		Config: *acConfig,
		Fetcher: fetcher.Fetcher{
			Client:  httpClient,
			Timeout: acConfig.FetchTimeout,
		},
		Source: source,
	}, nil
}

type statusResponse struct {
	Version int              `json:"version"`
	Mirrors []pipeline.Entry `json:"urls"`
}

func (a *Target) thresholds() pipeline.Thresholds {
	return pipeline.Thresholds{
		Completion: a.Completion,
		MaxDelay:   a.MaxDelay,
		MaxScore:   a.MaxScore,
		Protocols:  a.Protocols,
		Countries:  a.Countries,
	}
}

func (a *Target) FetchMirrors(q *progress.Queue) ([]mirror.Mirror, error) {
	var status statusResponse
	err := a.Fetcher.Fetch(q, a.Source, fetcher.JSON(&status))
	if err != nil {
		return nil, err
	}

	_ = q.Sendf("FETCHED MIRRORS: %d", len(status.Mirrors))

	entries := pipeline.Filter(status.Mirrors, a.thresholds())
	pipeline.Sort(entries, a.SortBy)

	return pipeline.Normalize(entries, a.PathToTest), nil
}

func (a *Target) FormatMirror(m mirror.Mirror) string {
	return fmt.Sprintf("Server = %s$repo/os/$arch", m.URL.String())
}
