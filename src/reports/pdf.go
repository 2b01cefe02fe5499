package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/grantpath/grantpath/src/advisor"
)

// sanitizeTextForPDF replaces characters the core PDF fonts cannot encode.
func sanitizeTextForPDF(text string) string {
	if text == "" {
		return text
	}

	var result strings.Builder
	result.Grow(len(text))

	for _, r := range text {
		switch r {
		case '–':
			result.WriteString("-")
		case '—':
			result.WriteString("--")
		case '‘', '’':
			result.WriteString("'")
		case '“', '”':
			result.WriteString("\"")
		case '…':
			result.WriteString("...")
		case ' ':
			result.WriteString(" ")
		default:
			if r < 128 {
				result.WriteRune(r)
			} else {
				result.WriteString("?")
			}
		}
	}
	return result.String()
}

// GeneratePDF renders a terminal report for download.
func GeneratePDF(runID string, report *advisor.Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("reports: nil report")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Funding Strategy Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	meta := fmt.Sprintf("Run %s  |  generated in %s", runID, report.Duration.Round(time.Millisecond))
	if report.Degraded {
		meta += fmt.Sprintf("  |  degraded mode (%d of %d analyses computed locally)",
			report.Fallback, report.Fallback+report.Generated)
	}
	pdf.CellFormat(0, 6, sanitizeTextForPDF(meta), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, section := range report.Sections {
		writeSection(pdf, section)
	}

	if len(report.Candidates) > 0 {
		writeCandidates(pdf, report.Candidates)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("reports: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSection(pdf *gofpdf.Fpdf, section advisor.Section) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, sanitizeTextForPDF(section.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, sanitizeTextForPDF(section.Body), "", "L", false)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, sanitizeTextForPDF("Grounded in: "+strings.Join(section.CitedTaskIDs, ", ")), "", "L", false)
	pdf.Ln(3)
}

func writeCandidates(pdf *gofpdf.Fpdf, candidates []advisor.Candidate) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Ranked Funder Candidates", "", 1, "L", false, 0, "")
	for i, c := range candidates {
		pdf.SetFont("Helvetica", "B", 10)
		head := fmt.Sprintf("%d. %s  (score %.2f, $%.0f across %d grants)",
			i+1, c.Identity, c.Score, c.TotalAmount, c.GrantCount)
		pdf.CellFormat(0, 6, sanitizeTextForPDF(head), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 4.5, sanitizeTextForPDF(c.Rationale), "", "L", false)
		pdf.Ln(2)
	}
}
