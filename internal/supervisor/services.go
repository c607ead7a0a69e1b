package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/okian/timeattack/internal/domain/schedule"
	"github.com/okian/timeattack/internal/domain/types"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

const nanosecondsPerMillisecond = 1e6

// HTTPServer is the subset of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server until its context is done, then shuts it
// down gracefully.
type HTTPService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
	logger          logger.Logger
}

// NewHTTPService wraps server. A non-positive timeout means 30 seconds.
func NewHTTPService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &HTTPService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		logger:          logger.Get().Named("http"),
	}
}

// Serve implements suture.Service.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		h.logger.Info(ctx, "starting HTTP server", logger.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		h.logger.Info(shutdownCtx, "server stopped")
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// StatsSource reports pipeline statistics.
type StatsSource interface {
	GetStats(ctx context.Context) (types.Stats, error)
}

// MetricsService refreshes process and pipeline gauges on an interval.
type MetricsService struct {
	stats    StatsSource
	interval time.Duration
	logger   logger.Logger
}

// NewMetricsService creates the updater. stats may be nil.
func NewMetricsService(stats StatsSource, interval time.Duration) *MetricsService {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &MetricsService{stats: stats, interval: interval, logger: logger.Get().Named("metrics")}
}

// Serve implements suture.Service.
func (m *MetricsService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.update(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (m *MetricsService) update(ctx context.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if mem.NumGC > 0 {
		metrics.RecordSystemGCPauseTime(float64(mem.PauseTotalNs) / float64(mem.NumGC) / nanosecondsPerMillisecond)
	}

	if m.stats == nil {
		return
	}
	stats, err := m.stats.GetStats(ctx)
	if err != nil {
		m.logger.Debug(ctx, "stats unavailable", logger.Error(err))
		return
	}
	metrics.UpdateDedupeSize(stats.DedupeSize)
	metrics.UpdateLeaderboardDrivers(stats.LeaderboardDrivers)
	metrics.UpdateStandingsDrivers(stats.StandingsDrivers)
}

func (m *MetricsService) String() string { return "system-metrics" }

// ScheduleWatch reloads the schedule file whenever it changes.
type ScheduleWatch struct {
	loader *schedule.Loader
}

// NewScheduleWatch watches loader's file.
func NewScheduleWatch(loader *schedule.Loader) *ScheduleWatch {
	return &ScheduleWatch{loader: loader}
}

// Serve implements suture.Service.
func (w *ScheduleWatch) Serve(ctx context.Context) error {
	stop, err := w.loader.Watch(ctx)
	if err != nil {
		return err
	}
	defer stop()
	<-ctx.Done()
	return ctx.Err()
}

func (w *ScheduleWatch) String() string { return "schedule-watch" }
