// Package pool speed tests a list of mirrors concurrently and ranks them by throughput.
package pool

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"roob.re/mirrorrank/mirror"
	"roob.re/mirrorrank/names"
	"roob.re/mirrorrank/pool/peeker"
	"roob.re/mirrorrank/progress"
	"roob.re/mirrorrank/stats"
	"roob.re/mirrorrank/worker"
)

type Config struct {
	Workers        int           `yaml:"workers"`
	SampleSizeMiBs float64       `yaml:"sampleSizeMiBs"`
	Timeout        time.Duration `yaml:"timeout"`
}

func (c Config) WithDefaults() Config {
	const (
		defaultWorkers        = 8
		defaultSampleSizeMiBs = 1.0
		defaultTimeout        = 4 * time.Second
	)

	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	if c.SampleSizeMiBs <= 0 {
		c.SampleSizeMiBs = defaultSampleSizeMiBs
	}

	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	return c
}

type Pool struct {
	Config
	Client *http.Client
	Stats  *stats.Stats

	// OnResult, if set, is called once per tested mirror, from the goroutine that tested it.
	OnResult func(worker.Result)
}

func New(c Config, client *http.Client, s *stats.Stats) *Pool {
	return &Pool{
		Config: c.WithDefaults(),
		Client: client,
		Stats:  s,
	}
}

// Rank tests every mirror and returns those that could be measured, fastest first. Mirrors failing the test are
// logged and left out.
func (p *Pool) Rank(mirrors []mirror.Mirror, q *progress.Queue) []worker.Result {
	results := make([]worker.Result, len(mirrors))

	g := errgroup.Group{}
	g.SetLimit(p.Workers)

	for i := range mirrors {
		i := i
		g.Go(func() error {
			w := worker.Worker{
				Name: names.Haiku(),
				Peeker: peeker.Peeker{
					SizeBytes: int64(p.SampleSizeMiBs * 1024 * 1024),
					Timeout:   p.Timeout,
				},
				Stats:  p.Stats,
				Client: p.Client,
			}

			log.Debugf("Starting worker %s for %s", w.String(), mirrors[i].URL.String())
			results[i] = w.Test(mirrors[i])

			if results[i].Err != nil {
				log.Warnf("Testing %s failed: %v", mirrors[i].URL.String(), results[i].Err)
				_ = q.Sendf("[%d/%d] %s: FAILED", i+1, len(mirrors), mirrors[i].URL.String())
			} else {
				_ = q.Sendf("[%d/%d] %s: %.2f MiB/s", i+1, len(mirrors), mirrors[i].URL.String(), results[i].Throughput()/1024/1024)
			}

			if p.OnResult != nil {
				p.OnResult(results[i])
			}

			return nil
		})
	}

	_ = g.Wait()

	ranked := make([]worker.Result, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			ranked = append(ranked, r)
		}
	}

	slices.SortStableFunc(ranked, func(a, b worker.Result) bool {
		return a.Throughput() > b.Throughput()
	})

	if p.Stats != nil {
		p.Stats.Report()
	}

	return ranked
}
