package supervisor

import (
	"net/http"
	"time"

	"github.com/okian/timeattack/internal/adapters/poller"
	"github.com/okian/timeattack/internal/adapters/trigger"
	service "github.com/okian/timeattack/internal/app"
	"github.com/okian/timeattack/internal/config"
	"github.com/okian/timeattack/internal/domain/schedule"
)

const (
	systemMetricsInterval = 10 * time.Second

	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// downstream lists the loops to wake when a loop reports a change.
var downstream = map[string][]string{ //nolint:gochecknoglobals // static wiring table
	service.LoopEvent:       {service.LoopIngest, service.LoopLeaderboard, service.LoopPublishLeaderboard},
	service.LoopIngest:      {service.LoopLeaderboard},
	service.LoopLeaderboard: {service.LoopStandings, service.LoopPublishLeaderboard},
	service.LoopStandings:   {service.LoopPublishStandings},
}

// Pipeline supervises every loop of svc on its configured interval. Loops
// are also woken early by upstream changes, by writes to the watched input
// and artifact files, and by schedule reloads. handler, when non-nil, is
// served on cfg.Addr.
func Pipeline(cfg *config.Config, svc *service.Service, handler http.Handler, opts ...Option) *Tree {
	t := New(opts...)

	triggers := make(map[string]*trigger.Trigger)
	for _, loop := range svc.Loops() {
		tr := trigger.New(loop.Name)
		triggers[loop.Name] = tr
		t.AddLoop(poller.New(loop.Name, loop.Tick,
			poller.WithInterval(loopInterval(cfg, loop.Name)),
			poller.WithTickTimeout(cfg.TickTimeout),
			poller.WithWake(tr.C())))
	}
	fire := func(names ...string) {
		for _, name := range names {
			if tr, ok := triggers[name]; ok {
				tr.Fire()
			}
		}
	}

	svc.OnChange(func(loop string) { fire(downstream[loop]...) })
	svc.Schedules().OnChange(func(*schedule.Schedule) {
		fire(service.LoopEvent, service.LoopStandings, service.LoopPublishSchedule)
	})

	w := trigger.NewWatcher()
	watch := func(path string, dir bool, loops ...string) {
		for _, name := range loops {
			tr, ok := triggers[name]
			if !ok || path == "" {
				continue
			}
			if dir {
				w.Dir(path, tr)
			} else {
				w.File(path, tr)
			}
		}
	}
	watch(cfg.ResultsDir, true, service.LoopIngest)
	watch(cfg.LeaderboardPath, false, service.LoopStandings, service.LoopPublishLeaderboard)
	watch(cfg.StandingsDir, true, service.LoopPublishStandings)
	watch(cfg.RegistryPath, false, service.LoopPublishLeaderboard, service.LoopPublishStandings)

	t.AddOps(w)
	t.AddOps(NewScheduleWatch(svc.Schedules()))
	t.AddOps(NewMetricsService(svc, systemMetricsInterval))
	if handler != nil && cfg.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		t.AddOps(NewHTTPService(srv, cfg.Addr, shutdownTimeout))
	}
	return t
}

func loopInterval(cfg *config.Config, loop string) time.Duration {
	switch loop {
	case service.LoopEvent:
		return cfg.EventInterval
	case service.LoopIngest:
		return cfg.IngestInterval
	case service.LoopLeaderboard:
		return cfg.LeaderboardInterval
	case service.LoopStandings:
		return cfg.StandingsInterval
	default:
		return cfg.PublishInterval
	}
}
