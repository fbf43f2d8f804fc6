package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gymflow/gymflow-api/pkg/jobs"
)

type notificationStamper interface {
	SetNotified(ctx context.Context, id int64, notifiedAt time.Time) error
}

type promotionPayload struct {
	EntryID  int64
	MemberID int64
	ClassID  int64
}

// NotificationService dispatches promotion notices on a background worker
// pool and stamps notified_at on the promoted entry. Actual delivery
// (email, push) belongs to a downstream channel; here the notice is logged.
type NotificationService struct {
	queue   *jobs.Queue
	entries notificationStamper
	logger  *zap.Logger
}

// NotificationConfig sizes the worker pool.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(entries notificationStamper, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{entries: entries, logger: logger}
	s.queue = jobs.NewQueue("waitlist-notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start begins background processing.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyPromotion enqueues a promotion notice. Failures are logged, never
// propagated: promotion must not depend on notification delivery.
func (s *NotificationService) NotifyPromotion(entryID, memberID, classID int64) {
	job := jobs.Job{
		ID:      fmt.Sprintf("promotion-%d", entryID),
		Type:    "waitlist_promotion",
		Payload: promotionPayload{EntryID: entryID, MemberID: memberID, ClassID: classID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue promotion notice",
			zap.Int64("entry_id", entryID), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(promotionPayload)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	s.logger.Info("waitlist promotion notice",
		zap.Int64("entry_id", payload.EntryID),
		zap.Int64("member_id", payload.MemberID),
		zap.Int64("class_id", payload.ClassID))
	return s.entries.SetNotified(ctx, payload.EntryID, time.Now().UTC())
}
