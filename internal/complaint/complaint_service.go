// Package complaint files abuse reports: it validates them, triages the
// reason, attaches recent room history as evidence and persists the result.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"strangerly/backend/internal/analysis"
	"strangerly/backend/internal/config"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/metrics"
	"strangerly/backend/internal/models"
	"strangerly/backend/internal/storage"
)

var ErrInvalidReport = errors.New("invalid report")

// Service handles the business logic for reports.
type Service struct {
	Reports storage.ReportSink
	History *storage.History

	EvidenceLimit int
}

// NewService creates a new complaint service. A nil sink means reports are
// only logged; a nil history means no evidence is attached.
func NewService(sink storage.ReportSink, history *storage.History) *Service {
	return &Service{
		Reports:       sink,
		History:       history,
		EvidenceLimit: config.ReportEvidenceMessages,
	}
}

// HandleReport processes a new report.
func (s *Service) HandleReport(ctx context.Context, r *models.Report) error {
	r.ReportedID = strings.TrimSpace(r.ReportedID)
	r.ReporterID = strings.TrimSpace(r.ReporterID)
	r.RoomID = strings.TrimSpace(r.RoomID)
	r.Reason = strings.TrimSpace(r.Reason)

	if r.ReportedID == "" {
		metrics.ReportsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: reportedId is required", ErrInvalidReport)
	}
	if r.ReporterID != "" && r.ReporterID == r.ReportedID {
		metrics.ReportsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: cannot report yourself", ErrInvalidReport)
	}
	if utf8.RuneCountInString(r.Reason) > config.MaxTextLength {
		r.Reason = string([]rune(r.Reason)[:config.MaxTextLength])
	}

	r.Category = analysis.Categorize(r.Reason)
	r.Severity = analysis.GetWeight(r.Category)
	r.Evidence = s.collectEvidence(ctx, r.RoomID)

	l := logger.Ctx(ctx)
	event := l.Info()
	if r.Severity >= config.HighSeverityReport {
		event = l.Warn()
	}
	event.Str("reported_id", r.ReportedID).
		Str(logger.FieldRoom, r.RoomID).
		Str("category", r.Category).
		Int("severity", r.Severity).
		Int("evidence", len(r.Evidence)).
		Msg("report filed")

	if s.Reports == nil {
		metrics.ReportsTotal.WithLabelValues("accepted").Inc()
		return nil
	}
	if err := s.Reports.SaveReport(ctx, r); err != nil {
		metrics.ReportsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("save report: %w", err)
	}
	metrics.ReportsTotal.WithLabelValues("accepted").Inc()
	return nil
}

func (s *Service) collectEvidence(ctx context.Context, room string) models.StringList {
	if room == "" || s.History == nil || s.EvidenceLimit <= 0 {
		return models.StringList{}
	}
	msgs := s.History.LoadRecent(ctx, room, s.EvidenceLimit)
	evidence := make(models.StringList, 0, len(msgs))
	for _, m := range msgs {
		evidence = append(evidence, m.SenderID+": "+m.Text)
	}
	return evidence
}
