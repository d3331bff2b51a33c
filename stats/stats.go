// Package stats keeps track of the throughput measured for each mirror and ranks them.
package stats

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

const maxSamples = 20

type Config struct {
	// MinSampleBytes is the amount of bytes below which a sample is considered too small to be meaningful.
	MinSampleBytes uint64
}

func (c Config) WithDefaults() Config {
	if c.MinSampleBytes == 0 {
		c.MinSampleBytes = 1024
	}

	return c
}

type Stats struct {
	Config

	sync.RWMutex
	mirrors map[string]entry
}

type Sample struct {
	Bytes    uint64
	Duration time.Duration
}

// Throughput returns the sample throughput in bytes per second, or 0 for samples with no duration.
func (s Sample) Throughput() float64 {
	if s.Duration <= 0 {
		return 0
	}

	return float64(s.Bytes) / s.Duration.Seconds()
}

func (s Sample) String() string {
	return fmt.Sprintf("%d bytes in %v (%.2fMiB/s)", s.Bytes, s.Duration, s.Throughput()/1024/1024)
}

type entry struct {
	samples int
	average float64
}

// Ranked is a mirror along with its average throughput, in bytes per second.
type Ranked struct {
	Name       string
	Throughput float64
}

func New(c Config) *Stats {
	return &Stats{
		Config:  c.WithDefaults(),
		mirrors: map[string]entry{},
	}
}

func (p *Stats) Remove(name string) {
	p.Lock()
	defer p.Unlock()

	delete(p.mirrors, name)
}

// Update records a sample for the given mirror. It returns false if the sample was discarded as not meaningful.
func (p *Stats) Update(name string, sample Sample) bool {
	if sample.Bytes < p.MinSampleBytes {
		log.Debugf("Not enough bytes for a meaningful throughput sample for %s, dropping (%d)", name, sample.Bytes)
		return false
	}

	throughput := sample.Throughput()
	if throughput == 0 {
		log.Debugf("Skipping stats recording for %s with zero duration", name)
		return false
	}

	log.Debugf("Recording sample of %.2fMiB/s for %s", throughput/1024/1024, name)

	p.Lock()
	defer p.Unlock()

	e := p.mirrors[name]
	e.average = (e.average*float64(e.samples) + throughput) / (float64(e.samples) + 1)
	e.samples++
	if e.samples > maxSamples {
		// Cap the weight of past samples so a mirror's average can still move if it starts performing differently.
		e.samples = maxSamples
	}

	p.mirrors[name] = e
	return true
}

// Throughput returns the average throughput recorded for name, and whether there is any.
func (p *Stats) Throughput(name string) (float64, bool) {
	p.RLock()
	defer p.RUnlock()

	e, found := p.mirrors[name]
	return e.average, found && e.samples > 0
}

// Ranking returns every mirror with recorded samples, fastest first.
func (p *Stats) Ranking() []Ranked {
	p.RLock()
	defer p.RUnlock()

	entries := make([]Ranked, 0, len(p.mirrors))

	for name, e := range p.mirrors {
		if e.average == 0 {
			continue
		}

		entries = append(entries, Ranked{
			Name:       name,
			Throughput: e.average,
		})
	}

	slices.SortFunc(entries, func(a, b Ranked) bool {
		// Less func is inverted to sort in descending order (from best to worst throughput)
		if a.Throughput != b.Throughput {
			return a.Throughput > b.Throughput
		}

		return a.Name < b.Name
	})

	return entries
}

// Report logs the current ranking.
func (p *Stats) Report() {
	for position, mirror := range p.Ranking() {
		log.Infof("Mirror #%d (%s): %.2f MiB/s", position+1, mirror.Name, mirror.Throughput/1024/1024)
	}
}
