package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler records wall time of pipeline stages and a few counters. Stage
// times accumulate across calls so per-frame stages report their total.
type Profiler struct {
	Scopes     map[string]time.Duration
	Calls      map[string]int
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		Calls:      make(map[string]int),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	if _, seen := p.Calls[name]; !seen {
		p.Order = append(p.Order, name)
		p.Calls[name] = 0
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] += time.Since(start)
		p.Calls[name]++
		delete(p.StartTimes, name)
	}
}

// Scope begins name and returns the matching end, for use with defer.
func (p *Profiler) Scope(name string) func() {
	p.BeginScope(name)
	return func() { p.EndScope(name) }
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) AddCount(name string, delta int) {
	p.Counts[name] += delta
}

func (p *Profiler) Reset() {
	// Keep Order so the report layout stays stable.
	for k := range p.Scopes {
		p.Scopes[k] = 0
		p.Calls[k] = 0
	}
	for k := range p.Counts {
		delete(p.Counts, k)
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		dur := p.Scopes[name]
		ms := float64(dur.Microseconds()) / 1000.0
		if n := p.Calls[name]; n > 1 {
			sb.WriteString(fmt.Sprintf("  %-20s: %.2f ms (%d calls)\n", name, ms, n))
		} else {
			sb.WriteString(fmt.Sprintf("  %-20s: %.2f ms\n", name, ms))
		}
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-20s: %d\n", k, p.Counts[k]))
	}

	return sb.String()
}
