package cloudmetrics

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/recipeverse/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("cloud.metrics",
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

// Worker refreshes the snapshot gauges and pushes on a fixed interval.
type Worker struct {
	pusher   Pusher
	gatherer prometheus.Gatherer
	snapshot *Snapshot
	interval time.Duration
	log      *zap.Logger
}

func NewWorker(pusher Pusher, gatherer prometheus.Gatherer, snapshot *Snapshot, interval time.Duration, log *zap.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{pusher: pusher, gatherer: gatherer, snapshot: snapshot, interval: interval, log: log}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.PushOnce(ctx)
	for {
		select {
		case <-ticker.C:
			w.PushOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) PushOnce(ctx context.Context) {
	if w.snapshot != nil {
		if err := w.snapshot.Refresh(ctx); err != nil {
			w.log.Warn("metrics snapshot refresh failed", zap.Error(err))
		}
	}
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := w.pusher.Push(pushCtx, w.gatherer); err != nil {
		w.log.Warn("metrics push failed", zap.Error(err))
	}
}

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, reg prometheus.Registerer, db *gorm.DB, log *zap.Logger) error {
	if pusher == nil {
		return nil
	}
	log = log.Named("cloudmetrics")

	snapshot, err := NewSnapshot(reg, db)
	if err != nil {
		return err
	}
	worker := NewWorker(pusher, prometheus.DefaultGatherer, snapshot, time.Duration(cfg.Metrics.Interval)*time.Second, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting metrics push worker", zap.Duration("interval", worker.interval))
			go func() {
				defer close(done)
				worker.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			if closer, ok := pusher.(io.Closer); ok {
				return closer.Close()
			}
			return nil
		},
	})
	return nil
}
