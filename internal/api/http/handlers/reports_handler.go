package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/service"
)

// ReportsHandler serves monthly reports as JSON and PDF.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Monthly GET /api/reports?month=&year=.
func (h *ReportsHandler) Monthly(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}
	report, err := h.service.Monthly(c.UserContext(), principal, year, month)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, monthlyReport(report))
}

// MonthlyPDF GET /api/reports/pdf?month=&year=.
func (h *ReportsHandler) MonthlyPDF(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	year, month, err := parsePeriod(c)
	if err != nil {
		return err
	}
	doc, report, err := h.service.MonthlyPDF(c.UserContext(), principal, year, month)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="helpdesk-report-%04d-%02d.pdf"`, report.Year, int(report.Month)))
	return c.Status(http.StatusOK).Send(doc)
}

func parsePeriod(c *fiber.Ctx) (int, int, error) {
	year, err := queryInt(c, "year")
	if err != nil {
		return 0, 0, err
	}
	month, err := queryInt(c, "month")
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// queryInt returns 0 for an absent parameter.
func queryInt(c *fiber.Ctx, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQuery(name, raw)
	}
	return v, nil
}
