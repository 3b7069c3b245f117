package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/clinic-booking-api/internal/models"
	"github.com/noah-isme/clinic-booking-api/pkg/jobs"
	"github.com/noah-isme/clinic-booking-api/pkg/middleware/requestid"
)

const auditJobType = "audit.write"

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// AuditService writes the audit trail of scheduling mutations off the request
// path through a job queue.
type AuditService struct {
	repo   auditRepository
	queue  jobQueue
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService constructs the service. With a nil queue entries are
// written synchronously.
func NewAuditService(repo auditRepository, queue jobQueue, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, queue: queue, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// UseQueue attaches the queue after construction, since the queue's handler
// is the service itself.
func (s *AuditService) UseQueue(queue jobQueue) {
	if s != nil {
		s.queue = queue
	}
}

// Handle is the jobs.Handler persisting queued entries.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Error("discarding audit job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.repo.Create(writeCtx, entry)
}

// Record stores who performed action on resource. Failures are logged and
// never fail the caller.
func (s *AuditService) Record(ctx context.Context, actor models.Actor, action, resource, resourceID string, details interface{}) {
	if s == nil || s.repo == nil {
		return
	}

	entry := &models.AuditLog{
		ID:         uuid.NewString(),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		CreatedAt:  s.now(),
	}
	if id := requestid.FromContext(ctx); id != "" {
		entry.RequestID = &id
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = raw
		}
	}

	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry})
		if err == nil {
			return
		}
		s.logger.Warn("audit enqueue failed, writing inline", zap.String("action", action), zap.Error(err))
	}

	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("audit write failed", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}
