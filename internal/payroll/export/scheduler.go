package export

import (
	"context"
	"time"

	"github.com/gartstein/payroll/internal/payroll/report"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler periodically publishes the previous calendar month's report.
type Scheduler struct {
	cron      *cron.Cron
	publisher *Publisher
	formats   []report.Format
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler registers the publish job on spec, a standard five field
// cron expression or a descriptor such as "@monthly".
func NewScheduler(spec string, publisher *Publisher, formats []report.Format, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		publisher: publisher,
		formats:   formats,
		timeout:   time.Minute,
		now:       time.Now,
		logger:    logger.Named("report_scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// PreviousMonth returns the calendar month before t.
func PreviousMonth(t time.Time) (int, int) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	prev := first.AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	year, month := PreviousMonth(s.now())
	if _, err := s.publisher.Publish(ctx, year, month, s.formats...); err != nil {
		s.logger.Error("Scheduled report publish failed",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err),
		)
	}
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.logger.Info("Starting report scheduler")
	s.cron.Start()
}

// Stop halts the loop and waits for a running publish to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
