package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rxguardian/internal/logger"
	"rxguardian/pkg/models"
)

const (
	fontFamily        = "Helvetica"
	unnamedMedication = "Unnamed Medication"
	notAvailable      = "N/A"
	currencyPrefix    = "Rs. "
)

type rgb struct{ r, g, b int }

var (
	colorHeading = rgb{44, 62, 80}
	colorMuted   = rgb{100, 100, 100}
	colorBody    = rgb{80, 80, 80}
	colorAccent  = rgb{255, 107, 107}
	colorGreen   = rgb{0, 128, 0}
	colorBorder  = rgb{200, 200, 200}
	colorDivider = rgb{220, 220, 220}
	colorFooter  = rgb{150, 150, 150}
)

// Options tune a Renderer.
type Options struct {
	// Compress deflates page streams. Disabled in tests to inspect the output.
	Compress bool

	// Now stamps the report; defaults to time.Now.
	Now func() time.Time
}

// Renderer draws analyses as PDF documents. The zero value is not usable;
// call NewRenderer.
type Renderer struct {
	opts  Options
	log   zerolog.Logger
	newID func() string
}

func NewRenderer(opts Options) *Renderer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{
		opts:  opts,
		log:   logger.WithComponent("report"),
		newID: uuid.NewString,
	}
}

// Render writes a compressed PDF for records to w.
func Render(w io.Writer, records []models.MedicationRecord) error {
	return NewRenderer(Options{Compress: true}).Render(w, records)
}

// Render writes the report for records to w: a header, one card per record in
// input order, then a "Page i of N" footer on every page.
func (r *Renderer) Render(w io.Writer, records []models.MedicationRecord) error {
	const op = "Render"

	digest, err := Digest(records)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	reportID := r.newID()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.opts.Compress)
	pdf.SetMargins(marginLeft, marginTop, marginLeft)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle("Prescription Analysis Report", true)
	pdf.SetCreator("RxGuardian", true)
	pdf.SetSubject(reportID, true)

	d := &drawer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()
	d.header(r.opts.Now(), len(records), reportID, digest)

	for _, block := range Plan(records) {
		d.card(records[block.Index], block.Height)
	}
	d.footers()

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.log.Debug().
		Str("report_id", reportID).
		Str("digest", digest).
		Int("medications", len(records)).
		Int("pages", pdf.PageCount()).
		Msg("Rendered analysis report")
	return nil
}

type drawer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (d *drawer) textColor(c rgb) { d.pdf.SetTextColor(c.r, c.g, c.b) }
func (d *drawer) drawColor(c rgb) { d.pdf.SetDrawColor(c.r, c.g, c.b) }
func (d *drawer) fillColor(c rgb) { d.pdf.SetFillColor(c.r, c.g, c.b) }

func (d *drawer) cell(w, h float64, text string) {
	d.pdf.CellFormat(w, h, d.tr(text), "", 0, "L", false, 0, "")
}

func (d *drawer) line(w, h float64, text, align string) {
	d.pdf.CellFormat(w, h, d.tr(text), "", 1, align, false, 0, "")
}

func (d *drawer) header(now time.Time, count int, reportID, digest string) {
	pdf := d.pdf

	pdf.SetFont(fontFamily, "B", 18)
	d.textColor(colorHeading)
	d.line(0, 10, "RxGuardian", "C")

	pdf.SetFont(fontFamily, "I", 12)
	d.textColor(colorMuted)
	d.line(0, 6, "Prescription Analysis Report", "C")

	d.drawColor(colorBorder)
	pdf.Line(cardX, pdf.GetY()+5, cardX+cardWidth, pdf.GetY()+5)

	pdf.Ln(8)
	pdf.SetFont(fontFamily, "", 9)
	d.line(0, 5, "Generated on: "+now.Format("January 02, 2006 at 03:04 PM"), "L")
	noun := "medications"
	if count == 1 {
		noun = "medication"
	}
	d.line(0, 5, fmt.Sprintf("Analyzed %d %s", count, noun), "L")

	pdf.SetFont(fontFamily, "", 7)
	d.textColor(colorFooter)
	d.line(0, 4, fmt.Sprintf("Report %s  |  SHA-256 %s", reportID, digest[:16]), "L")
	pdf.Ln(5)
}

func (d *drawer) card(rec models.MedicationRecord, height float64) {
	pdf := d.pdf

	if NeedsBreak(pdf.GetY(), height) {
		pdf.AddPage()
	}
	page := pdf.PageNo()
	y0 := pdf.GetY()

	name := rec.MedicationName
	if name == "" {
		name = unnamedMedication
	}
	pdf.SetXY(contentX, y0+4)
	pdf.SetFont(fontFamily, "B", 12)
	d.textColor(colorHeading)
	d.line(0, 8, name, "L")

	d.drawColor(colorDivider)
	pdf.Line(contentX, y0+13, contentRightX, y0+13)

	pdf.SetXY(contentX, y0+15)
	d.textColor(colorMuted)
	d.label(25, "Dose:")
	pdf.SetFont(fontFamily, "", 9)
	d.cell(40, 6, orNA(rec.PrescribedDose))
	d.label(25, "Frequency:")
	pdf.SetFont(fontFamily, "", 9)
	d.line(0, 6, orNA(rec.Frequency), "L")

	pdf.SetXY(contentX, pdf.GetY()+1)
	d.label(25, "Cost:")
	pdf.SetFont(fontFamily, "B", 10)
	d.textColor(colorAccent)
	d.line(0, 6, currencyPrefix+orNA(rec.PrescribedCost), "L")
	d.textColor(colorMuted)

	if rec.RecommendedDose != "" {
		pdf.SetXY(contentX, pdf.GetY()+2)
		d.textColor(colorGreen)
		d.label(30, "Recommended:")
		pdf.SetFont(fontFamily, "", 9)
		d.line(0, 6, rec.RecommendedDose, "L")
		d.textColor(colorMuted)
	}

	if rec.Reasoning != "" {
		pdf.SetXY(contentX, pdf.GetY()+4)
		d.textColor(colorHeading)
		pdf.SetFont(fontFamily, "B", 9)
		d.line(0, 6, "Analysis:", "L")

		pdf.SetXY(indentX, pdf.GetY()+1)
		pdf.SetFont(fontFamily, "", 9)
		d.textColor(colorBody)
		reasoning := strings.TrimSpace(strings.ReplaceAll(rec.Reasoning, "\n", " "))
		pdf.MultiCell(reasoningW, 4.5, d.tr(reasoning), "", "L", false)
		d.textColor(colorMuted)
	}

	if len(rec.CheaperAlternatives) > 0 {
		pdf.SetXY(contentX, pdf.GetY()+2)
		d.textColor(colorGreen)
		pdf.SetFont(fontFamily, "B", 9)
		d.line(0, 6, "Cheaper Alternatives:", "L")

		pdf.SetFont(fontFamily, "", 9)
		for _, alt := range rec.CheaperAlternatives {
			pdf.SetXY(indentX, pdf.GetY()+2)
			d.textColor(colorBody)
			d.cell(100, 6, "• "+orNA(alt.Name)+" - ")
			d.textColor(colorAccent)
			d.cell(30, 6, currencyPrefix+orNA(alt.Cost))
			if alt.Availability != "" {
				d.textColor(colorMuted)
				d.cell(0, 6, "("+alt.Availability+")")
			}
			pdf.Ln(4)
		}
	}

	end := max(pdf.GetY()+4, y0+height)
	// A card whose text spilled onto the next page keeps no frame.
	if pdf.PageNo() == page {
		d.frame(y0, end-y0)
	}
	pdf.SetXY(cardX, end+cardGap)
}

func (d *drawer) label(w float64, text string) {
	d.pdf.SetFont(fontFamily, "B", 9)
	d.cell(w, 6, text)
}

func (d *drawer) frame(y, h float64) {
	pdf := d.pdf
	pdf.SetLineWidth(0.2)
	d.drawColor(colorBorder)
	pdf.Rect(cardX, y, cardWidth, h, "D")
	d.fillColor(colorAccent)
	pdf.Rect(cardX, y, accentWidth, h, "F")
}

// footers revisits every page once all content is laid out, so the total page
// count is known.
func (d *drawer) footers() {
	pdf := d.pdf
	total := pdf.PageCount()
	pdf.SetAutoPageBreak(false, 0)

	for i := 1; i <= total; i++ {
		pdf.SetPage(i)
		// fpdf only emits a font change when it differs from the last one set,
		// which was on another page.
		pdf.SetFont(fontFamily, "", 9)
		pdf.SetFont(fontFamily, "I", 8)
		d.textColor(colorFooter)
		d.drawColor(colorBorder)
		pdf.Line(cardX, footerLineY, cardX+cardWidth, footerLineY)
		pdf.SetXY(0, footerTextY)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of %d", i, total), "", 0, "C", false, 0, "")
	}
	pdf.SetPage(total)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
