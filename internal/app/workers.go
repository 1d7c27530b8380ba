package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/internal/model"
	"github.com/Alijeyrad/carevisit_backend/internal/realtime"
	"github.com/Alijeyrad/carevisit_backend/internal/service/demo"
	"github.com/Alijeyrad/carevisit_backend/internal/service/schedule"
)

// WorkerModule registers the background workers of the server.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc          fx.Lifecycle
	Cfg         *config.Config
	NC          *nats.Conn
	ScheduleSvc schedule.Service
	DemoSvc     demo.Service
}

const demoResetTimeout = 2 * time.Minute

func RegisterWorkers(p WorkerParams) {
	var (
		unsub func()
		sched *demoResetJob
	)

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			unsub, err = startInvalidationWorker(p.NC, p.ScheduleSvc)
			if err != nil {
				return err
			}

			if p.Cfg.Demo.Enabled {
				sched, err = startDemoResetJob(p.Cfg.Demo.ResetCron, p.DemoSvc)
				if err != nil {
					return err
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if unsub != nil {
				unsub()
			}
			if sched != nil {
				sched.Stop(ctx)
			}
			// Drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// invalidation_worker
// ---------------------------------------------------------------------------

// startInvalidationWorker drops the cached ranges of a facility whenever any
// session or instance reports a change there.
func startInvalidationWorker(nc *nats.Conn, svc schedule.Service) (func(), error) {
	sub := realtime.NewSubscriber(nc, slog.Default())
	return sub.SubscribeAll(func(sig model.Signal) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Invalidate(ctx, sig.FacilityID); err != nil {
			slog.Warn("invalidation_worker: cache bump failed", "facility_id", sig.FacilityID, "err", err)
			return
		}
		slog.Debug("invalidation_worker: cache bumped", "facility_id", sig.FacilityID, "action", sig.Action)
	})
}

// ---------------------------------------------------------------------------
// demo_reset
// ---------------------------------------------------------------------------

// cronLogger routes robfig/cron logs to slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}

// demoResetJob is the scheduled demo reset plus the run made at start.
type demoResetJob struct {
	cron  *cron.Cron
	entry cron.EntryID
	first sync.WaitGroup
}

// Stop halts the schedule and waits, until ctx ends, for every running reset
// including the first.
func (j *demoResetJob) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		<-j.cron.Stop().Done()
		j.first.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// startDemoResetJob seeds the demo facility now and again on every cron tick.
func startDemoResetJob(spec string, svc demo.Service) (*demoResetJob, error) {
	logger := cronLogger{l: slog.Default()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	reset := func() {
		ctx, cancel := context.WithTimeout(context.Background(), demoResetTimeout)
		defer cancel()
		if err := svc.Reset(ctx); err != nil {
			slog.Error("demo_reset: failed", "err", err)
		}
	}

	id, err := c.AddFunc(spec, reset)
	if err != nil {
		return nil, err
	}
	j := &demoResetJob{cron: c, entry: id}

	// through the wrapped job so a tick is skipped while this run lasts
	job := c.Entry(id).WrappedJob
	j.first.Add(1)
	go func() {
		defer j.first.Done()
		job.Run()
	}()

	c.Start()
	slog.Info("demo_reset: scheduled", "spec", spec)
	return j, nil
}
