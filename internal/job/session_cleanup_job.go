package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"linkmark/internal/pkg/timeutil"
	"linkmark/internal/repo"
)

// SessionCleanupJob removes expired session rows. Expired sessions are
// already rejected at auth time; this keeps the table from growing without
// bound.
type SessionCleanupJob struct {
	sessions *repo.SessionRepo
}

func NewSessionCleanupJob(sessions *repo.SessionRepo) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions}
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	removed, err := j.sessions.DeleteExpired(ctx, timeutil.NowMilli())
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("expired sessions removed", zap.Int64("count", removed))
	}
	return nil
}
