package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"workshop-announcer/internal/domain/entity"
	"workshop-announcer/internal/observability/logging"
	"workshop-announcer/internal/observability/tracing"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// CatalogFetcher returns the item ids on the first listing page.
type CatalogFetcher interface {
	Fetch(ctx context.Context) ([]entity.ItemID, error)
}

// DetailFetcher builds the record of a single item.
type DetailFetcher interface {
	Fetch(ctx context.Context, id entity.ItemID) (*entity.Item, error)
}

// Announcer sends the announcement for one item.
type Announcer interface {
	Announce(ctx context.Context, item *entity.Item) error
}

// Cycle outcomes reported in CycleReport.Status and the cycles metric.
const (
	CycleStatusPrimed    = "primed"
	CycleStatusPriming   = "priming" // empty first snapshot, still waiting for a baseline
	CycleStatusCompleted = "completed"
	CycleStatusSkipped   = "skipped"
	CycleStatusCanceled  = "canceled"
	CycleStatusTimedOut  = "timed_out" // CycleTimeout passed, delta committed anyway
)

// Config holds the poll loop settings.
type Config struct {
	// Schedule decides when the next cycle starts after one finishes.
	Schedule cron.Schedule

	// AnnounceDelay is the pause between two announcements of one cycle.
	AnnounceDelay time.Duration

	// DetailConcurrency bounds parallel detail page fetches.
	DetailConcurrency int

	// CycleTimeout bounds one whole cycle. Zero disables it. Items not
	// handled before the deadline are dropped like failed items.
	CycleTimeout time.Duration
}

// CycleReport describes one finished cycle.
type CycleReport struct {
	CycleID      string    `json:"cycle_id"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	SnapshotSize int       `json:"snapshot_size"`
	NewItems     int       `json:"new_items"`
	Announced    int       `json:"announced"`
	Failed       int       `json:"failed"`
	Error        string    `json:"error,omitempty"`
}

// Poller drives the catalog polling loop. It owns the Detector.
type Poller struct {
	catalog   CatalogFetcher
	details   DetailFetcher
	announcer Announcer
	detector  *Detector
	cfg       Config
	logger    *slog.Logger

	now func() time.Time
}

// NewPoller creates a Poller. A nil Schedule falls back to every five
// minutes, and DetailConcurrency below one means sequential fetches.
func NewPoller(catalog CatalogFetcher, details DetailFetcher, announcer Announcer, detector *Detector, cfg Config, logger *slog.Logger) *Poller {
	if cfg.Schedule == nil {
		cfg.Schedule = cron.Every(5 * time.Minute)
	}
	if cfg.DetailConcurrency < 1 {
		cfg.DetailConcurrency = 1
	}
	if detector == nil {
		detector = NewDetector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		catalog:   catalog,
		details:   details,
		announcer: announcer,
		detector:  detector,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Status returns the detector summary for health endpoints.
func (p *Poller) Status() Status {
	return p.detector.Status()
}

// Run executes a cycle immediately and then one per schedule tick until ctx
// is canceled. Cycle failures are logged and never stop the loop.
// It returns nil once ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started",
		slog.Int("detail_concurrency", p.cfg.DetailConcurrency),
		slog.Duration("announce_delay", p.cfg.AnnounceDelay))

	for {
		_, _ = p.RunCycle(ctx)

		if ctx.Err() != nil {
			p.logger.Info("poller stopped")
			return nil
		}

		next := p.cfg.Schedule.Next(p.now())
		wait := next.Sub(p.now())
		p.logger.Debug("sleeping until next cycle",
			slog.Time("next_run", next),
			slog.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("poller stopped")
			return nil
		case <-timer.C:
		}
	}
}

// itemResult is written by exactly one detail goroutine and read only after
// the group has been joined.
type itemResult struct {
	item *entity.Item
	err  error
	span trace.Span
}

// RunCycle performs one fetch, diff, announce, commit pass.
//
// A failed catalog fetch leaves the seen set untouched and returns the
// error. Per-item detail or dispatch failures are logged and counted; those
// ids are still committed. If ctx is canceled before the cycle finishes
// nothing is committed. If only CycleTimeout expires the whole delta is
// committed, so nothing already sent is sent again.
func (p *Poller) RunCycle(ctx context.Context) (report CycleReport, err error) {
	report = CycleReport{
		CycleID:   uuid.New().String(),
		StartedAt: p.now(),
	}
	parent := ctx

	if p.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.CycleTimeout)
		defer cancel()
	}

	ctx = logging.WithCycleID(ctx, p.logger, report.CycleID)
	logger := logging.FromContext(ctx)

	ctx, span := tracing.StartSpan(ctx, "watch.cycle", attribute.String("cycle_id", report.CycleID))
	defer func() {
		report.FinishedAt = p.now()
		if err != nil {
			report.Error = err.Error()
		}
		span.SetAttributes(
			attribute.String("status", report.Status),
			attribute.Int("snapshot_size", report.SnapshotSize),
			attribute.Int("new_items", report.NewItems),
			attribute.Int("failed", report.Failed),
		)
		tracing.EndSpan(span, err)
		p.detector.recordCycle(report)
		recordCycle(report, p.detector.Len())
	}()

	snapshot, err := p.catalog.Fetch(ctx)
	if err != nil {
		if parent.Err() != nil {
			report.Status = CycleStatusCanceled
			return report, parent.Err()
		}
		report.Status = CycleStatusSkipped
		logger.Warn("catalog fetch failed, skipping cycle", slog.Any("error", err))
		return report, fmt.Errorf("fetch catalog: %w", err)
	}
	report.SnapshotSize = len(snapshot)

	delta, priming := p.detector.Diff(snapshot)

	if priming {
		if !p.detector.Prime(delta) {
			report.Status = CycleStatusPriming
			logger.Warn("catalog listing is empty, baseline not established yet")
			return report, nil
		}
		report.Status = CycleStatusPrimed
		logger.Info("baseline established", slog.Int("seen", p.detector.Len()))
		return report, nil
	}

	report.NewItems = len(delta)
	if len(delta) == 0 {
		report.Status = CycleStatusCompleted
		logger.Debug("no new items", slog.Int("snapshot_size", len(snapshot)))
		return report, nil
	}

	logger.Info("new items detected",
		slog.Int("count", len(delta)),
		slog.Any("item_ids", delta))

	results := p.fetchDetails(ctx, delta)
	if ctx.Err() != nil {
		endItemSpans(results, ctx.Err())
		return p.interrupted(parent, logger, delta, report, ctx.Err())
	}

	announced, failed, aborted := p.announce(ctx, delta, results)
	report.Announced = announced
	report.Failed = failed
	if aborted != nil {
		return p.interrupted(parent, logger, delta, report, aborted)
	}

	p.detector.Commit(delta)
	report.Status = CycleStatusCompleted
	logger.Info("cycle completed",
		slog.Int("announced", announced),
		slog.Int("failed", failed),
		slog.Int("seen", p.detector.Len()))
	return report, nil
}

// interrupted finishes a cycle whose context ended while delta was being
// handled. On shutdown nothing is committed. When only the cycle deadline
// passed, the delta is committed and the unsent items count as failed.
func (p *Poller) interrupted(parent context.Context, logger *slog.Logger, delta []entity.ItemID, report CycleReport, cause error) (CycleReport, error) {
	if parent.Err() != nil {
		report.Status = CycleStatusCanceled
		return report, parent.Err()
	}

	report.Failed = len(delta) - report.Announced
	p.detector.Commit(delta)
	report.Status = CycleStatusTimedOut
	logger.Warn("cycle deadline exceeded, remaining items dropped",
		slog.Duration("cycle_timeout", p.cfg.CycleTimeout),
		slog.Int("announced", report.Announced),
		slog.Int("dropped", report.Failed),
		slog.Int("seen", p.detector.Len()))
	return report, cause
}

// fetchDetails fetches all delta items with bounded concurrency. Goroutines
// never return an error so one failure cannot cancel its siblings.
func (p *Poller) fetchDetails(ctx context.Context, delta []entity.ItemID) []itemResult {
	results := make([]itemResult, len(delta))

	var g errgroup.Group
	g.SetLimit(p.cfg.DetailConcurrency)

	for i, id := range delta {
		g.Go(func() error {
			itemCtx, span := tracing.StartSpan(ctx, "watch.item", attribute.Int64("item_id", int64(id)))
			item, err := p.details.Fetch(itemCtx, id)
			results[i] = itemResult{item: item, err: err, span: span}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// announce sends the fetched items in snapshot order, pausing AnnounceDelay
// between sends. It returns a non-nil error only when ctx ends mid-way.
func (p *Poller) announce(ctx context.Context, delta []entity.ItemID, results []itemResult) (announced, failed int, aborted error) {
	logger := logging.FromContext(ctx)
	sent := 0

	for i, r := range results {
		id := delta[i]

		if r.err != nil {
			failed++
			recordItemFailure("detail", r.err)
			logger.Warn("item detail fetch failed",
				slog.Int64("item_id", int64(id)),
				slog.Any("error", r.err))
			tracing.EndSpan(r.span, r.err)
			continue
		}

		if sent > 0 && p.cfg.AnnounceDelay > 0 {
			if err := sleepCtx(ctx, p.cfg.AnnounceDelay); err != nil {
				endItemSpans(results[i:], err)
				return announced, failed, err
			}
		}
		sent++

		err := p.announcer.Announce(trace.ContextWithSpan(ctx, r.span), r.item)
		tracing.EndSpan(r.span, err)
		if err != nil {
			if ctx.Err() != nil {
				endItemSpans(results[i+1:], ctx.Err())
				return announced, failed, ctx.Err()
			}
			failed++
			recordItemFailure("announce", err)
			logger.Warn("item announcement failed",
				slog.Int64("item_id", int64(id)),
				slog.Any("error", err))
			continue
		}
		announced++
	}

	return announced, failed, nil
}

func endItemSpans(results []itemResult, err error) {
	for _, r := range results {
		if r.span != nil {
			tracing.EndSpan(r.span, err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// errorKind maps an error onto the taxonomy label used in metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, entity.ErrFetch):
		return "fetch"
	case errors.Is(err, entity.ErrParse):
		return "parse"
	case errors.Is(err, entity.ErrDispatch):
		return "dispatch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
