package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/gartstein/payroll/internal/payroll/report"
	"go.uber.org/zap"
)

// ReportSource produces the report for a period.
type ReportSource interface {
	GenerateReport(ctx context.Context, year, month int) (*report.Report, error)
}

// Publisher renders reports and writes them to a Store.
type Publisher struct {
	source ReportSource
	store  Store
	prefix string
	logger *zap.Logger
}

// NewPublisher returns a Publisher writing under prefix in store.
func NewPublisher(source ReportSource, store Store, prefix string, logger *zap.Logger) *Publisher {
	return &Publisher{
		source: source,
		store:  store,
		prefix: prefix,
		logger: logger.Named("report_export"),
	}
}

// Key is the object key of the report for year/month in format f.
func (p *Publisher) Key(r *report.Report, f report.Format) string {
	return path.Join(p.prefix, r.FileName(string(f)))
}

// Publish generates the report for year/month once and stores it in every
// requested format. It returns the keys written.
func (p *Publisher) Publish(ctx context.Context, year, month int, formats ...report.Format) ([]string, error) {
	if len(formats) == 0 {
		formats = report.Formats
	}

	rep, err := p.source.GenerateReport(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("generate report %d-%02d: %w", year, month, err)
	}

	keys := make([]string, 0, len(formats))
	for _, f := range formats {
		var buf bytes.Buffer
		if err := report.Write(&buf, rep, f); err != nil {
			return keys, fmt.Errorf("render %s report: %w", f, err)
		}

		key := p.Key(rep, f)
		if err := p.store.Put(ctx, key, &buf, f.ContentType()); err != nil {
			return keys, err
		}
		p.logger.Info("Report published",
			zap.String("key", key),
			zap.Int("rows", len(rep.Rows)),
		)
		keys = append(keys, key)
	}
	return keys, nil
}
