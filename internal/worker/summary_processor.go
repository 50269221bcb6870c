package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pivik/internal/aggregate"
	"pivik/internal/budget"
	"pivik/internal/sheets"
)

// Dashboard is the read side the processor publishes from.
type Dashboard interface {
	Summary(ctx context.Context) (aggregate.Summary, error)
	Budget(ctx context.Context) (budget.Status, error)
}

// SummaryProcessorConfig holds configuration for the summary processor
type SummaryProcessorConfig struct {
	// Interval is how often the summary sheet is rewritten (default: 5m)
	Interval time.Duration
}

func DefaultSummaryProcessorConfig() SummaryProcessorConfig {
	return SummaryProcessorConfig{Interval: 5 * time.Minute}
}

// SummaryProcessor periodically rewrites the dashboard figures to the mirror.
type SummaryProcessor struct {
	dashboard Dashboard
	writer    sheets.SummaryWriter
	config    SummaryProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSummaryProcessor(d Dashboard, w sheets.SummaryWriter, config SummaryProcessorConfig) *SummaryProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultSummaryProcessorConfig().Interval
	}
	return &SummaryProcessor{dashboard: d, writer: w, config: config}
}

// Start begins the refresh loop. Returns an error if already running.
func (p *SummaryProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("summary processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Summary processor started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
// The processor counts as stopped once signalled, so a timed-out Stop is
// not repeated.
func (p *SummaryProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.stopCh, p.doneCh = nil, nil
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Summary processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Summary processor stop timed out")
		return ctx.Err()
	}
}

func (p *SummaryProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SummaryProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Publish immediately on startup
	p.refresh(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *SummaryProcessor) refresh(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to refresh summary", "error", err)
	}
}

// Refresh recomputes the dashboard and writes it once.
func (p *SummaryProcessor) Refresh(ctx context.Context) error {
	sum, err := p.dashboard.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	b, err := p.dashboard.Budget(ctx)
	if err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	if err := p.writer.WriteSummary(ctx, sum, b); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	slog.DebugContext(ctx, "Summary refreshed",
		"total_due_cents", sum.TotalDue.Cents,
		"net_profit_cents", sum.NetProfit.Cents)
	return nil
}
