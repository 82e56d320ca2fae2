package worker

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Sweeper drops expired entries and reports how many went.
type Sweeper interface {
	Sweep() int
}

type Config struct {
	Interval time.Duration
}

// Janitor periodically sweeps in-process TTL stores so entries nobody reads
// again do not pile up.
type Janitor struct {
	cfg     Config
	targets map[string]Sweeper
	names   []string
	log     *slog.Logger
}

func NewJanitor(cfg Config, log *slog.Logger, targets map[string]Sweeper) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}

	names := make([]string, 0, len(targets))
	for name, s := range targets {
		if s != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return &Janitor{
		cfg:     cfg,
		targets: targets,
		names:   names,
		log:     log,
	}
}

func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor received shutdown signal")
			return nil

		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce runs every target once and returns the total dropped.
func (j *Janitor) SweepOnce() int {
	total := 0

	for _, name := range j.names {
		n := j.targets[name].Sweep()
		if n > 0 {
			j.log.Debug("swept expired entries", "target", name, "dropped", n)
		}
		total += n
	}

	return total
}
