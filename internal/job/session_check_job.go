package job

import (
	"context"
)

type SessionChecker interface {
	CheckSession(ctx context.Context) error
}

type SessionCheckJob struct {
	checker SessionChecker
}

func NewSessionCheckJob(checker SessionChecker) *SessionCheckJob {
	return &SessionCheckJob{checker: checker}
}

func (j *SessionCheckJob) Name() string {
	return "session_check"
}

func (j *SessionCheckJob) Run(ctx context.Context) error {
	if j.checker == nil {
		return nil
	}
	return j.checker.CheckSession(ctx)
}
