package export

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/p-n-ai/pai-analysis/internal/analysis"
	"github.com/p-n-ai/pai-analysis/internal/render"
)

// A4 portrait, millimetres.
const (
	pdfMarginX      = 8.0
	pdfMarginY      = 10.0
	pdfLineHeight   = 5.5
	pdfBlockSpacing = 4.0
	pdfCellPadding  = 2.0

	pdfFontFamily = "analysis"
)

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	family string
	width  float64
}

func (e *Exporter) pdf(view render.View, title string) ([]byte, error) {
	var buf bytes.Buffer
	err := WithTemporaryRenderTarget(e.tempDir, func(string) error {
		w := e.newPDFWriter(title)
		w.title(title)
		w.sentences(view.Sentences)
		w.structure(view.Structure)
		w.vocabulary(view.Vocabulary)

		if err := w.pdf.Error(); err != nil {
			return fmt.Errorf("laying out pdf: %w", err)
		}
		if err := w.pdf.Output(&buf); err != nil {
			return fmt.Errorf("writing pdf: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Exporter) newPDFWriter(title string) *pdfWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginX, pdfMarginY, pdfMarginX)
	pdf.SetAutoPageBreak(true, pdfMarginY)
	pdf.SetTitle(title, true)
	pdf.SetCreator("pai-analysis", true)
	pdf.SetCreationDate(e.now())

	pdf.AddUTF8FontFromBytes(pdfFontFamily, "", e.font)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "B", e.font)
	family := pdfFontFamily

	pageW, _ := pdf.GetPageSize()
	w := &pdfWriter{pdf: pdf, family: family, width: pageW - 2*pdfMarginX}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMarginY + 2)
		pdf.SetFont(family, "", 8)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 4, strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return w
}

func (w *pdfWriter) body() {
	w.pdf.SetFont(w.family, "", 10)
	w.pdf.SetTextColor(17, 24, 39)
}

func (w *pdfWriter) title(title string) {
	w.pdf.SetFont(w.family, "B", 16)
	w.pdf.SetTextColor(17, 24, 39)
	w.pdf.MultiCell(0, 9, title, "", "C", false)
	w.pdf.Ln(3)
}

func (w *pdfWriter) heading(text string) {
	w.keepTogether(8 + pdfLineHeight*2)
	w.pdf.SetFont(w.family, "B", 13)
	w.pdf.SetTextColor(17, 24, 39)
	w.pdf.SetFillColor(243, 244, 246)
	w.pdf.CellFormat(0, 8, text, "", 1, "L", true, 0, "")
	w.pdf.Ln(2)
}

func (w *pdfWriter) sentences(sentences []render.SentenceView) {
	w.heading(headingSentences)
	for _, s := range sentences {
		w.keepTogether(w.sentenceHeight(s))
		w.sentence(s)
	}
}

// sentence draws one block: the colored original, then translation, grammar notes,
// sentence vocabulary and paraphrase.
func (w *pdfWriter) sentence(s render.SentenceView) {
	w.pdf.SetFont(w.family, "B", 11)
	w.pdf.SetTextColor(17, 24, 39)
	w.pdf.Write(pdfLineHeight, strconv.Itoa(s.Number)+". ")
	for _, span := range s.Spans {
		r, g, b := analysis.Color(span.Color).RGB()
		w.pdf.SetTextColor(r, g, b)
		style := ""
		if span.Class != "" {
			style = "B"
		}
		w.pdf.SetFont(w.family, style, 11)
		w.pdf.Write(pdfLineHeight, span.Text)
	}
	w.pdf.Ln(pdfLineHeight + 1)

	w.body()
	if s.Translation != "" {
		w.pdf.SetTextColor(75, 85, 99)
		w.pdf.MultiCell(0, pdfLineHeight, s.Translation, "", "L", false)
		w.body()
	}
	for _, gp := range s.GrammarPoints {
		w.pdf.MultiCell(0, pdfLineHeight, "· "+gp, "", "L", false)
	}
	if len(s.Vocabulary) > 0 {
		w.pdf.SetFont(w.family, "", 9)
		w.pdf.MultiCell(0, pdfLineHeight, sentenceVocabulary(s.Vocabulary), "", "L", false)
		w.body()
	}
	if s.Paraphrasing != "" {
		w.pdf.SetTextColor(75, 85, 99)
		w.pdf.MultiCell(0, pdfLineHeight, "→ "+s.Paraphrasing, "", "L", false)
		w.body()
	}
	w.pdf.Ln(pdfBlockSpacing)
}

func (w *pdfWriter) sentenceHeight(s render.SentenceView) float64 {
	var original strings.Builder
	original.WriteString(strconv.Itoa(s.Number) + ". ")
	for _, span := range s.Spans {
		original.WriteString(span.Text)
	}

	w.pdf.SetFont(w.family, "B", 11)
	lines := w.lines(original.String()) + 0.2

	w.pdf.SetFont(w.family, "", 10)
	lines += w.lines(s.Translation)
	for _, gp := range s.GrammarPoints {
		lines += w.lines("· " + gp)
	}
	if s.Paraphrasing != "" {
		lines += w.lines("→ " + s.Paraphrasing)
	}
	w.pdf.SetFont(w.family, "", 9)
	lines += w.lines(sentenceVocabulary(s.Vocabulary))

	w.body()
	return lines*pdfLineHeight + pdfBlockSpacing
}

// lines estimates how many wrapped lines text takes at the current font.
func (w *pdfWriter) lines(text string) float64 {
	if text == "" {
		return 0
	}
	usable := w.width - pdfCellPadding
	var n float64
	for _, para := range strings.Split(text, "\n") {
		n += math.Max(1, math.Ceil(w.pdf.GetStringWidth(para)/usable))
	}
	return n
}

// keepTogether starts a new page when a block of height h would straddle a page
// break. Blocks taller than a page are left to flow.
func (w *pdfWriter) keepTogether(h float64) {
	_, pageH := w.pdf.GetPageSize()
	_, top, _, bottom := w.pdf.GetMargins()
	if h > pageH-top-bottom {
		return
	}
	if w.pdf.GetY()+h > pageH-bottom {
		w.pdf.AddPage()
	}
}

func (w *pdfWriter) structure(st *render.StructureView) {
	w.pdf.AddPage()
	w.heading(headingStructure)
	w.body()
	if st == nil {
		w.pdf.MultiCell(0, pdfLineHeight, emptyStructure, "", "L", false)
		return
	}
	if st.Summary != "" {
		w.pdf.MultiCell(0, pdfLineHeight, st.Summary, "", "L", false)
		w.pdf.Ln(pdfBlockSpacing)
	}
	for _, sec := range st.Sections {
		w.pdf.SetFont(w.family, "B", 11)
		h := w.lines(sec.Label)
		w.pdf.SetFont(w.family, "", 10)
		h += w.lines(sec.Content)
		w.keepTogether(h*pdfLineHeight + pdfBlockSpacing)

		w.pdf.SetFont(w.family, "B", 11)
		w.pdf.MultiCell(0, pdfLineHeight, sec.Label, "", "L", false)
		w.body()
		w.pdf.MultiCell(0, pdfLineHeight, sec.Content, "", "L", false)
		w.pdf.Ln(pdfBlockSpacing)
	}
}

// vocabulary draws the word list as a two-column grid.
func (w *pdfWriter) vocabulary(vocab []analysis.VocabEntry) {
	w.pdf.Ln(pdfBlockSpacing)
	w.heading(headingVocabulary)
	w.body()
	if len(vocab) == 0 {
		w.pdf.MultiCell(0, pdfLineHeight, emptyVocabulary, "", "L", false)
		return
	}

	colW := w.width / 2
	const rowH = 7.0
	w.pdf.SetDrawColor(209, 213, 219)
	for i, v := range vocab {
		ln := 0
		if i%2 == 1 || i == len(vocab)-1 {
			ln = 1
		}
		if i%2 == 0 {
			w.keepTogether(rowH)
		}
		w.pdf.CellFormat(colW, rowH, vocabularyLine(v), "1", ln, "L", false, 0, "")
	}
}

func vocabularyLine(v analysis.VocabEntry) string {
	line := v.Word + "  " + v.Meaning
	if v.Type != "" {
		line += " (" + v.Type + ")"
	}
	return line
}

func sentenceVocabulary(vocab []analysis.VocabEntry) string {
	parts := make([]string, 0, len(vocab))
	for _, v := range vocab {
		parts = append(parts, v.Word+": "+v.Meaning)
	}
	return strings.Join(parts, ", ")
}
