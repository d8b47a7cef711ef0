package scheduler

import (
	"context"
	"fmt"
	"time"

	"procurement_backend/internal/channels"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// sweepInterval paces the periodic outbound queue drain that catches messages
// whose dispatch task was lost.
const sweepInterval = time.Minute

// Worker consumes scheduler tasks: single-message outbound dispatch and the
// periodic outbound sweep.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher *channels.Dispatcher
	log        *logger.Logger
}

// NewWorker creates the task worker.
func NewWorker(cfg config.SchedulerConfig, dispatcher *channels.Dispatcher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		dispatcher: dispatcher,
		log:        log,
	}

	mux.HandleFunc(TaskOutboundDispatch, w.handleOutboundDispatch)
	mux.HandleFunc(TaskOutboundSweep, w.handleOutboundSweep)

	return w, nil
}

func (w *Worker) handleOutboundDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutboundDispatchPayload(task)
	if err != nil {
		return err
	}

	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		return err
	}

	return w.dispatcher.Dispatch(ctx, messageID)
}

func (w *Worker) handleOutboundSweep(ctx context.Context, _ *asynq.Task) error {
	sent, err := w.dispatcher.DrainOutbound(ctx)
	if sent > 0 {
		w.log.Info("outbound sweep delivered messages", "count", sent)
	}
	return err
}

// Run serves tasks until ctx is cancelled, running the periodic sweep
// alongside the asynq server.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go w.runSweepLoop(ctx)

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.handleOutboundSweep(ctx, nil); err != nil {
				w.log.Error("outbound sweep failed", "error", err)
			}
		}
	}
}
