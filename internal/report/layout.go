// Package report typesets medication analyses as a paginated PDF.
package report

import (
	"unicode/utf8"

	"rxguardian/pkg/models"
)

// Page geometry in millimetres, A4 portrait.
const (
	pageBreakY    = 270.0
	footerLineY   = 287.0
	footerTextY   = 288.0
	marginLeft    = 15.0
	marginTop     = 15.0
	marginBottom  = 15.0
	cardX         = 10.0
	cardWidth     = 190.0
	accentWidth   = 4.0
	contentX      = 20.0
	contentRightX = 195.0
	indentX       = 25.0
	reasoningW    = 165.0
	cardGap       = 6.0
)

// Height estimate components.
const (
	baseHeight        = 16.0
	charsPerLine      = 80
	reasoningLineH    = 5.0
	reasoningHeadingH = 8.0
	alternativeH      = 6.0
	alternativesHeadH = 8.0
	recommendedDoseH  = 6.0
	blockPadding      = 10.0
)

// Block is the planned footprint of one medication card.
type Block struct {
	Index  int
	Height float64
}

// Plan estimates the height of every card in input order.
func Plan(records []models.MedicationRecord) []Block {
	blocks := make([]Block, len(records))
	for i, rec := range records {
		blocks[i] = Block{Index: i, Height: BlockHeight(rec)}
	}
	return blocks
}

// BlockHeight estimates the vertical space a card needs. Reasoning is assumed
// to wrap at about eighty characters per line.
func BlockHeight(rec models.MedicationRecord) float64 {
	h := baseHeight

	if rec.Reasoning != "" {
		lines := utf8.RuneCountInString(rec.Reasoning) / charsPerLine
		if lines < 1 {
			lines = 1
		}
		h += float64(lines)*reasoningLineH + reasoningHeadingH
	}
	if n := len(rec.CheaperAlternatives); n > 0 {
		h += float64(n)*alternativeH + alternativesHeadH
	}
	if rec.RecommendedDose != "" {
		h += recommendedDoseH
	}
	return h + blockPadding
}

// NeedsBreak reports whether a card of height h starting at y would cross
// the bottom content limit.
func NeedsBreak(y, h float64) bool {
	return y+h > pageBreakY
}
