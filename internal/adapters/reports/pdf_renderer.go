package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signintech/gopdf"
	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
	"github.com/tobenna/symptom-assist/backend/pkg/config"
)

const (
	fontName  = "Report"
	lineWidth = 500.0
)

// PDFRenderer renders assessment reports as PDF files on local disk.
type PDFRenderer struct {
	outputDir string
	fontPath  string
}

// NewPDFRenderer creates a new PDF report renderer.
func NewPDFRenderer(cfg *config.ReportsConfig) (providers.ReportRenderer, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report output dir: %w", err)
	}
	return &PDFRenderer{
		outputDir: cfg.OutputDir,
		fontPath:  cfg.FontPath,
	}, nil
}

// RenderReport writes the payload as a PDF and returns the file path.
func (r *PDFRenderer) RenderReport(ctx context.Context, payload *entities.ReportPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("report payload is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont(fontName, r.fontPath); err != nil {
		return "", fmt.Errorf("failed to load report font: %w", err)
	}

	if err := pdf.SetFont(fontName, "", 20); err != nil {
		return "", err
	}
	pdf.Cell(nil, "Symptom Assessment Report")
	pdf.Br(30)

	if err := pdf.SetFont(fontName, "", 11); err != nil {
		return "", err
	}
	pdf.Cell(nil, fmt.Sprintf("Generated: %s", payload.GeneratedAt.Format("02 Jan 2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Report ID: %s", payload.ID))
	pdf.Br(25)

	for i, entry := range payload.Entries {
		if err := pdf.SetFont(fontName, "", 13); err != nil {
			return "", err
		}
		pdf.Cell(nil, fmt.Sprintf("Entry %d - %s", i+1, entry.CreatedAt.Format("02 Jan 2006")))
		pdf.Br(15)

		if err := pdf.SetFont(fontName, "", 11); err != nil {
			return "", err
		}
		writeWrapped(&pdf, fmt.Sprintf("Symptoms: %s", entry.SymptomText))
		writeWrapped(&pdf, fmt.Sprintf("Finding: %s", entry.Result.PossibleConditions))
		if entry.Result.Confidence != nil {
			writeWrapped(&pdf, fmt.Sprintf("Confidence: %.0f%%", *entry.Result.Confidence))
		}
		if entry.Result.TriageLevel != nil {
			writeWrapped(&pdf, fmt.Sprintf("Triage level: %s", *entry.Result.TriageLevel))
		}
		if entry.Result.CareRecommendation != nil {
			writeWrapped(&pdf, fmt.Sprintf("Recommendation: %s", *entry.Result.CareRecommendation))
		}
		pdf.Br(15)
	}

	pdf.SetY(800)
	if err := pdf.SetFont(fontName, "", 9); err != nil {
		return "", err
	}
	pdf.Cell(nil, "AI-generated content. Not a substitute for professional medical advice.")

	fileName := fmt.Sprintf("report_%s_%d.pdf", payload.ID, time.Now().Unix())
	path := filepath.Join(r.outputDir, fileName)
	if err := pdf.WritePdf(path); err != nil {
		return "", fmt.Errorf("failed to write PDF: %w", err)
	}

	return path, nil
}

func writeWrapped(pdf *gopdf.GoPdf, text string) {
	lines, _ := pdf.SplitText(text, lineWidth)
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(13)
	}
	pdf.Br(3)
}
