package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-analysis/internal/render"
)

const (
	sheetVocabulary = "단어장"
	sheetSentences  = "문장별 어휘"
)

// vocabularyWorkbook writes the document vocabulary to one sheet and the
// per-sentence vocabulary to a second.
func vocabularyWorkbook(view render.View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetVocabulary); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSentences); err != nil {
		return nil, fmt.Errorf("adding sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F3F4F6"}},
	})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	rows := [][]any{{"단어", "뜻", "품사"}}
	for _, v := range view.Vocabulary {
		rows = append(rows, []any{v.Word, v.Meaning, v.Type})
	}
	if err := writeRows(f, sheetVocabulary, rows, header, []float64{24, 40, 12}); err != nil {
		return nil, err
	}

	rows = [][]any{{"문장", "단어", "뜻", "품사"}}
	for _, s := range view.Sentences {
		for _, v := range s.Vocabulary {
			rows = append(rows, []any{s.Number, v.Word, v.Meaning, v.Type})
		}
	}
	if err := writeRows(f, sheetSentences, rows, header, []float64{8, 24, 40, 12}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int, widths []float64) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(widths))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("sizing %s column %s: %w", sheet, col, err)
		}
	}
	return nil
}
