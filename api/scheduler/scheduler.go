package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

const auditTimeout = 2 * time.Minute

// AuditReport is the outcome of the last duplicate-chat audit
type AuditReport struct {
	RanAt      time.Time                   `json:"ranAt"`
	Duplicates []models.DuplicateChatGroup `json:"duplicates"`
	Error      string                      `json:"error,omitempty"`
}

// Scheduler runs periodic background jobs
type Scheduler struct {
	cron     *cron.Cron
	Chats    databases.ChatDatabase
	schedule string

	mu   sync.RWMutex
	last *AuditReport
}

// NewScheduler creates a new scheduler instance. schedule is a cron spec or
// descriptor such as "@hourly".
func NewScheduler(chats databases.ChatDatabase, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		Chats:    chats,
		schedule: schedule,
	}
}

// Start registers every job and begins the scheduler
func (s *Scheduler) Start() error {
	// sessions that ended up with more than one chat because two first
	// connections raced through chat creation
	if _, err := s.cron.AddFunc(s.schedule, s.auditDuplicateChats); err != nil {
		return fmt.Errorf("failed to register duplicate chat audit %q: %w", s.schedule, err)
	}

	s.cron.Start()
	zap.S().Infow("scheduler started", "chatAudit", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

// LastAudit returns the most recent audit report, or nil if none ran yet
func (s *Scheduler) LastAudit() *AuditReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) auditDuplicateChats() {
	s.RunAudit(context.Background())
}

// RunAudit looks for interview sessions owning more than one chat and records the
// result
func (s *Scheduler) RunAudit(ctx context.Context) *AuditReport {
	ctx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()

	report := &AuditReport{RanAt: time.Now().UTC(), Duplicates: []models.DuplicateChatGroup{}}
	groups, err := s.Chats.FindDuplicateSessions(ctx)
	if err != nil {
		zap.S().Errorw("duplicate chat audit failed", "error", err)
		report.Error = err.Error()
	} else {
		report.Duplicates = append(report.Duplicates, groups...)
	}

	for _, g := range report.Duplicates {
		chatIDs := lo.Map(g.Chats, func(id primitive.ObjectID, _ int) string {
			return id.Hex()
		})
		zap.S().Warnw("interview session has duplicate chats",
			"sessionId", g.InterviewSession.Hex(),
			"count", g.Count,
			"chatIds", chatIDs)
	}
	if err == nil {
		zap.S().Infow("duplicate chat audit finished", "sessions", len(report.Duplicates))
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report
}
