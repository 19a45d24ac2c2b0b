package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler wraps gocron for the recurring maintenance jobs, currently
// just the stale URL-source refresh.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func New() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{scheduler: s}
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleCron registers a job on a cron expression.
func (s *Scheduler) ScheduleCron(tag, cronExpr string, job func()) error {
	_, err := s.scheduler.Cron(cronExpr).Tag(tag).Do(job)
	return err
}
