package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/report"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// ReportService builds monthly activity reports.
type ReportService struct {
	reports  repository.ReportRepository
	renderer report.Renderer
	logger   *zap.Logger
	now      Clock
}

// NewReportService constructs the service.
func NewReportService(reports repository.ReportRepository, renderer report.Renderer, logger *zap.Logger, clock Clock) *ReportService {
	return &ReportService{reports: reports, renderer: renderer, logger: loggerOrNop(logger), now: clockOrNow(clock)}
}

// Monthly aggregates the tickets created in the given month. Zero values
// select the current month.
func (s *ReportService) Monthly(ctx context.Context, actor *domain.Principal, year, month int) (*domain.MonthlyReport, error) {
	ctx, span := tracer.Start(ctx, "ReportService.Monthly")
	defer span.End()

	if err := requirePermission(actor, policy.GenerateReports, "not allowed to generate reports"); err != nil {
		return nil, err
	}
	current := s.now().UTC()
	if year == 0 {
		year = current.Year()
	}
	if month == 0 {
		month = int(current.Month())
	}
	if month < 1 || month > 12 {
		return nil, apperrors.NewValidationError("month must be between 1 and 12", map[string]any{"month": month})
	}
	if year < 1970 || year > 9999 {
		return nil, apperrors.NewValidationError("invalid year", map[string]any{"year": year})
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	r, err := s.reports.Monthly(ctx, from, to)
	if err != nil {
		return nil, err
	}
	r.Year = year
	r.Month = time.Month(month)
	r.From, r.To = from, to
	r.GeneratedAt = current
	return r, nil
}

// MonthlyPDF renders the monthly report. A renderer failure is returned to
// the caller since the document is what they asked for.
func (s *ReportService) MonthlyPDF(ctx context.Context, actor *domain.Principal, year, month int) ([]byte, *domain.MonthlyReport, error) {
	r, err := s.Monthly(ctx, actor, year, month)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.renderer.Render(*r)
	if err != nil {
		s.logger.Error("report rendering failed", zap.Int("year", r.Year), zap.Int("month", int(r.Month)), zap.Error(err))
		return nil, nil, apperrors.NewDependencyFailure("report renderer", err)
	}
	return doc, r, nil
}
