// Package jobsqueue wraps asynq for the editor core's background work:
// handlers for thumbnail regeneration and project orphan sweeps that run
// off the caller's path. Local/dev runs need no real Redis:
// when Config.RedisAddr is empty, the queue starts an embedded miniredis
// instance and points asynq at that instead.
package jobsqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/novaforge/reelcore/internal/metrics"
)

const (
	TaskGenerateThumbnail = "media:thumbnail"
	TaskProbeMetadata     = "media:probe"
	TaskOrphanSweep       = "project:orphan_sweep"
)

type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
	miniRedis *miniredis.Miniredis // non-nil only in the embedded-broker case
	log       zerolog.Logger

	stopDepthPoll chan struct{}
}

// New starts a Queue. If redisAddr is empty, an embedded miniredis server
// is started in-process so local development needs no external broker.
func New(redisAddr string, concurrency int, log zerolog.Logger) (*Queue, error) {
	var mr *miniredis.Miniredis
	if redisAddr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("jobsqueue: start embedded redis: %w", err)
		}
		redisAddr = mr.Addr()
		log.Info().Str("addr", redisAddr).Msg("jobsqueue: using embedded redis broker")
	}

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	})
	mux := asynq.NewServeMux()
	mux.Use(metricsMiddleware)
	inspector := asynq.NewInspector(redisOpt)

	q := &Queue{client: client, server: server, mux: mux, inspector: inspector, miniRedis: mr, log: log, stopDepthPoll: make(chan struct{})}
	go q.pollQueueDepth()
	return q, nil
}

func (q *Queue) pollQueueDepth() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			q.ReportQueueDepth()
		case <-q.stopDepthPoll:
			return
		}
	}
}

// metricsMiddleware records JobsProcessedTotal for every handler this
// queue runs, regardless of task type.
func metricsMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		err := h.ProcessTask(ctx, t)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.JobsProcessedTotal.WithLabelValues(t.Type(), outcome).Inc()
		return err
	})
}

// ReportQueueDepth polls the inspector and publishes JobQueueDepth for
// each known queue; the Queue's own pollQueueDepth goroutine, started by
// New, runs it every 15 seconds.
func (q *Queue) ReportQueueDepth() {
	for _, name := range []string{"critical", "default", "low"} {
		info, err := q.inspector.GetQueueInfo(name)
		if err != nil {
			continue
		}
		metrics.JobQueueDepth.WithLabelValues(name).Set(float64(info.Pending + info.Active + info.Scheduled))
	}
}

// isTaskConflict distinguishes "already enqueued" from a real failure so
// callers can treat re-submitting an in-flight ingestion job as a no-op.
func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

// EnqueueUnique enqueues with a deterministic task id so the same media
// item can't be double-queued for the same operation (e.g. a retry racing
// the original decode).
func (q *Queue) EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("jobsqueue: marshal payload: %w", err)
	}
	opts = append(opts, asynq.TaskID(uniqueID))
	task := asynq.NewTask(taskType, data, opts...)
	info, err := q.client.Enqueue(task)
	if err == nil {
		return info.ID, nil
	}
	if isTaskConflict(err) {
		q.log.Debug().Str("task_id", uniqueID).Msg("jobsqueue: already queued, skipping")
		return uniqueID, nil
	}
	return "", fmt.Errorf("jobsqueue: enqueue: %w", err)
}

func (q *Queue) Enqueue(taskType string, payload interface{}, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("jobsqueue: marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data, opts...)
	info, err := q.client.Enqueue(task)
	if err != nil {
		return "", fmt.Errorf("jobsqueue: enqueue: %w", err)
	}
	return info.ID, nil
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

func (q *Queue) Start(ctx context.Context) error {
	q.log.Info().Msg("jobsqueue: worker starting")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	close(q.stopDepthPoll)
	q.server.Shutdown()
	q.client.Close()
	q.inspector.Close()
	if q.miniRedis != nil {
		q.miniRedis.Close()
	}
}
