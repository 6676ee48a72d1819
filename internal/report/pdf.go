package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// Renderer turns a monthly report into a downloadable document.
type Renderer interface {
	Render(r domain.MonthlyReport) ([]byte, error)
}

// PDFRenderer lays the report out on a single A4 page.
type PDFRenderer struct {
	Title string
}

// NewPDFRenderer returns a renderer with the default heading.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{Title: "Helpdesk Monthly Report"}
}

func (p *PDFRenderer) Render(r domain.MonthlyReport) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle(p.Title, true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, p.Title, "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 7, fmt.Sprintf("%s %d", r.Month.String(), r.Year), "", 1, "C", false, 0, "")
	doc.Ln(4)

	section(doc, "Summary")
	row(doc, "Total tickets", fmt.Sprintf("%d", r.TotalTickets))
	row(doc, "Closed tickets", fmt.Sprintf("%d", r.ClosedTickets))
	row(doc, "Average resolution (hours)", fmt.Sprintf("%.2f", r.AvgResolutionHours))

	counts(doc, "By status", domain.TicketStatuses, r.ByStatus)
	counts(doc, "By priority", domain.TicketPriorities, r.ByPriority)
	counts(doc, "By category", domain.TicketCategories, r.ByCategory)

	section(doc, "Top agents")
	if len(r.TopAgents) == 0 {
		row(doc, "No assigned tickets", "")
	}
	for i, a := range r.TopAgents {
		row(doc, fmt.Sprintf("%d. %s", i+1, a.Name), fmt.Sprintf("%d", a.Count))
	}

	doc.Ln(6)
	doc.SetFont("Helvetica", "I", 8)
	doc.CellFormat(0, 5, "Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "R", false, 0, "")

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

func section(doc *fpdf.Fpdf, title string) {
	doc.Ln(3)
	doc.SetFont("Helvetica", "B", 12)
	doc.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
}

func row(doc *fpdf.Fpdf, label, value string) {
	doc.CellFormat(120, 6, label, "", 0, "L", false, 0, "")
	doc.CellFormat(0, 6, value, "", 1, "R", false, 0, "")
}

func counts[K ~string](doc *fpdf.Fpdf, title string, order []K, m map[K]int) {
	section(doc, title)
	for _, k := range order {
		if n, ok := m[k]; ok {
			row(doc, string(k), fmt.Sprintf("%d", n))
		}
	}
}
