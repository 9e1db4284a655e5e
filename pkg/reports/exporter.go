package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/observability"
)

// Exporter writes every report kind to an Archive
type Exporter struct {
	generator *Generator
	archive   Archive
	activity  *activity.Logger
}

// NewExporter creates an exporter. Exports are recorded in the activity log
// when log is not nil.
func NewExporter(generator *Generator, archive Archive, log *activity.Logger) *Exporter {
	return &Exporter{generator: generator, archive: archive, activity: log}
}

// Key is the archive key of kind exported at t
func Key(kind Kind, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("reports/%04d/%02d/%02d/%s-%s.csv",
		t.Year(), int(t.Month()), t.Day(), kind, t.Format("20060102T150405Z"))
}

// ExportAll renders every kind as CSV and uploads it. A failing kind does
// not stop the others; the returned keys are the uploads that succeeded and
// err joins every failure.
func (e *Exporter) ExportAll(ctx context.Context, now time.Time) ([]string, error) {
	logger := observability.FromContext(ctx)

	var (
		keys []string
		errs []error
	)
	for _, kind := range Kinds() {
		key, err := e.export(ctx, kind, now)
		if err != nil {
			logger.WithError(err).WithField("kind", kind.String()).Error("report export failed")
			errs = append(errs, err)
			continue
		}
		logger.WithFields(map[string]interface{}{
			"kind": kind.String(),
			"key":  key,
		}).Info("report exported")
		keys = append(keys, key)
	}
	return keys, errors.Join(errs...)
}

func (e *Exporter) export(ctx context.Context, kind Kind, now time.Time) (string, error) {
	report, err := e.generator.Generate(ctx, kind, FormatCSV)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, report.Table); err != nil {
		return "", fmt.Errorf("failed to render %s report: %w", kind, err)
	}

	key := Key(kind, now)
	if err := e.archive.Put(ctx, key, buf.Bytes(), FormatCSV.ContentType()); err != nil {
		return "", err
	}

	if e.activity != nil {
		e.activity.Record(ctx, activity.RequestInfo{}, nil, activity.ActionReportExport,
			fmt.Sprintf("Exported %s to %s", report.Name, key))
	}
	return key, nil
}
