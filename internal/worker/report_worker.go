// Package worker runs the asynchronous side of the service: month-end report
// generation, cache invalidation on record events and the report scheduler.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"arwaeduc/internal/amqp"
	"arwaeduc/internal/core"
	"arwaeduc/internal/log"
	"arwaeduc/internal/metrics"
	"arwaeduc/internal/report"
	"arwaeduc/internal/sheets"
)

// ReportSource assembles a month's report data.
type ReportSource interface {
	MonthlyReport(ctx context.Context, p core.Period, school string) (report.Monthly, error)
	Location() *time.Location
}

type ReportWorkerConfig struct {
	Dir       string
	School    string
	Formatter report.Formatter
}

// ReportWorker writes the XLSX and PDF exports of a month and publishes its
// summary row. Regenerating a month overwrites the previous files and row.
type ReportWorker struct {
	source    ReportSource
	publisher sheets.SummaryPublisher
	cfg       ReportWorkerConfig
	logger    *log.Logger
	now       func() time.Time
}

// Result lists what a generation produced.
type Result struct {
	Month     string
	Files     []string
	SheetsRef string
}

// NewReportWorker builds a worker. publisher may be nil to skip Sheets.
func NewReportWorker(source ReportSource, publisher sheets.SummaryPublisher, cfg ReportWorkerConfig, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportWorker{
		source:    source,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleReportRequest is the AMQP handler for report.requested.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestedMessage) error {
	_, err := w.Generate(ctx, msg.Year, msg.Month)
	return err
}

func (w *ReportWorker) Generate(ctx context.Context, year, month int) (res Result, err error) {
	start := w.now()
	defer func() { metrics.ObserveReport(w.now().Sub(start), err) }()

	p := core.MonthPeriod(year, month, w.source.Location())
	res.Month = p.Label()
	w.logger.InfoContext(ctx, "Generating monthly report", log.FieldPeriod, res.Month)

	m, err := w.source.MonthlyReport(ctx, p, w.cfg.School)
	if err != nil {
		return res, fmt.Errorf("collect report data %s: %w", res.Month, err)
	}

	xlsx, err := report.BuildMonthlyXLSX(m, w.source.Location())
	metrics.ReportGenerated("xlsx", err)
	if err != nil {
		return res, err
	}
	pdf, err := report.BuildMonthlyPDF(m, w.cfg.Formatter)
	metrics.ReportGenerated("pdf", err)
	if err != nil {
		return res, err
	}

	for _, out := range []struct {
		ext  string
		body []byte
	}{{"xlsx", xlsx}, {"pdf", pdf}} {
		path := filepath.Join(w.cfg.Dir, m.FileName(out.ext))
		if err := writeFileAtomic(path, out.body); err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)
	}

	if w.publisher != nil {
		ref, err := w.publisher.PublishSummary(ctx, sheets.NewSummaryRow(m.Overview, m.Payroll))
		if err != nil {
			return res, fmt.Errorf("publish summary %s: %w", res.Month, err)
		}
		res.SheetsRef = ref
	}

	w.logger.InfoContext(ctx, "Monthly report ready",
		log.FieldPeriod, res.Month,
		log.FieldStatus, string(m.Overview.Reconciliation.Status),
		log.FieldSheetsRef, res.SheetsRef,
		"files", res.Files)
	return res, nil
}

// writeFileAtomic writes through a temp file in the same directory so readers
// never see a partial export.
func writeFileAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
