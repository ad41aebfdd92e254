// Package poller keeps registry load and health data fresh
package poller

import (
	"context"
	"sync"
	"time"

	"gridbalancer/internal/types"
)

// Options configures the poll loop
type Options struct {
	// Interval between poll cycles
	Interval time.Duration
	// Timeout per substation probe; must be shorter than Interval so
	// cycles never pile up
	Timeout time.Duration
	// EvictThreshold is the number of consecutive failed polls after
	// which a substation is removed from the registry; 0 disables eviction
	EvictThreshold int
	// OnEvict is called after a substation has been evicted
	OnEvict func(substationID string)
}

// Poller drives the background poll cycle. It runs on its own wall-clock
// schedule, independent of request volume.
type Poller struct {
	registry types.Registry
	prober   types.Prober
	metrics  types.MetricsCollector
	logger   types.Logger
	opts     Options

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a new poller
func New(registry types.Registry, prober types.Prober, metrics types.MetricsCollector, logger types.Logger, opts Options) *Poller {
	return &Poller{
		registry: registry,
		prober:   prober,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the poll loop. It returns immediately; polling continues
// until Stop is called or the context is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true

	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.opts.Interval)
		defer ticker.Stop()

		// Poll once up front so seeded substations become routable
		// without waiting a full interval.
		p.cycle(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.cycle(ctx)
			}
		}
	}()

	p.logger.Info("poller started",
		"interval", p.opts.Interval,
		"timeout", p.opts.Timeout,
		"evict_threshold", p.opts.EvictThreshold,
	)
}

// Stop halts the poll loop. In-flight probes are abandoned via context
// cancellation.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.running = false

	close(p.stopCh)
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.logger.Info("poller stopped")
}

// cycle polls every registered substation concurrently and waits for all
// probes of this cycle. Each probe is bounded by its own timeout, so one
// slow substation never delays the others or the next cycle.
func (p *Poller) cycle(ctx context.Context) {
	snapshot := p.registry.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, sub := range snapshot {
		wg.Add(1)
		go func(id, address string) {
			defer wg.Done()
			p.poll(ctx, id, address)
		}(sub.ID, sub.Address)
	}
	wg.Wait()
}

// poll probes one substation and applies the result. The poll-attempt
// timestamp is captured before the probe starts, so a slow probe racing
// a later one loses at the registry.
func (p *Poller) poll(ctx context.Context, id, address string) {
	polledAt := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	report, err := p.prober.Probe(probeCtx, address)
	p.metrics.RecordPollDuration(time.Since(polledAt))

	if err != nil {
		p.logger.Warn("substation probe failed", "id", id, "error", err)
	}

	sub, applied := p.registry.ApplyPollResult(id, report, err == nil, polledAt)
	if !applied {
		// Entry removed meanwhile, or a newer result already landed.
		return
	}

	p.metrics.SetSubstationLoad(id, sub.LoadPercentage())
	p.metrics.SetSubstationHealth(id, sub.Healthy)

	if err == nil {
		p.logger.Debug("substation polled",
			"id", id,
			"load_kw", sub.ReportedLoadKW,
			"capacity_kw", sub.CapacityKW,
			"load_pct", sub.LoadPercentage(),
		)
		return
	}

	if p.opts.EvictThreshold > 0 && sub.ConsecutiveFailures >= p.opts.EvictThreshold {
		p.evict(id, sub.ConsecutiveFailures)
	}
}

func (p *Poller) evict(id string, failures int) {
	if err := p.registry.Remove(id); err != nil {
		return
	}

	p.metrics.Forget(id)
	if p.opts.OnEvict != nil {
		p.opts.OnEvict(id)
	}

	p.logger.Warn("substation evicted after sustained failures",
		"id", id,
		"consecutive_failures", failures,
	)
}
