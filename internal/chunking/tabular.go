package chunking

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"docingest/pkg/errors"
)

// tabularStrategy chunks row-oriented data. The header row is captured once
// and prepended to every emitted chunk; data rows are packed by a running
// character budget that excludes the header. Spreadsheet workbooks chunk
// each sheet independently. OOXML workbooks (.xlsx) are zip containers read
// by excelize; legacy workbooks (.xls) are OLE/BIFF containers and need
// their own reader.
type tabularStrategy struct {
	chunkChars int

	// Overridable for tests; defaults to the extrame/xls reader.
	readLegacy func(content []byte) ([]workbookSheet, error)
}

// workbookSheet carries one sheet's rows independent of container format.
type workbookSheet struct {
	name string
	rows [][]string
}

func newTabularStrategy(chunkChars int) *tabularStrategy {
	return &tabularStrategy{
		chunkChars: chunkChars,
		readLegacy: readLegacyWorkbook,
	}
}

func (s *tabularStrategy) Chunk(_ context.Context, content []byte, fc FileContext) ([]Fragment, error) {
	ext := strings.ToLower(filepath.Ext(fc.FileName))
	switch ext {
	case ".xlsx":
		return s.chunkWorkbook(content, fc)
	case ".xls":
		return s.chunkLegacyWorkbook(content, fc)
	default:
		return s.chunkCSV(content, fc)
	}
}

func (s *tabularStrategy) chunkCSV(content []byte, fc FileContext) ([]Fragment, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewExtractionError(fc.FileName, err)
		}
		rows = append(rows, record)
	}

	return s.packRows(rows, fc.firstPage(), ""), nil
}

func (s *tabularStrategy) chunkWorkbook(content []byte, fc FileContext) ([]Fragment, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.NewExtractionError(fc.FileName, err)
	}
	defer workbook.Close()

	var sheets []workbookSheet
	for _, name := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(name)
		if err != nil {
			return nil, errors.NewExtractionError(fc.FileName, err)
		}
		sheets = append(sheets, workbookSheet{name: name, rows: rows})
	}

	return s.chunkSheets(sheets, fc), nil
}

func (s *tabularStrategy) chunkLegacyWorkbook(content []byte, fc FileContext) ([]Fragment, error) {
	sheets, err := s.readLegacy(content)
	if err != nil {
		return nil, errors.NewExtractionError(fc.FileName, err)
	}
	return s.chunkSheets(sheets, fc), nil
}

// chunkSheets packs each sheet independently. Page numbers continue across
// sheets; multi-sheet workbooks carry a derived per-sheet file name.
func (s *tabularStrategy) chunkSheets(sheets []workbookSheet, fc FileContext) []Fragment {
	multiSheet := len(sheets) > 1

	var fragments []Fragment
	page := fc.firstPage()
	for _, sheet := range sheets {
		effectiveName := ""
		if multiSheet {
			effectiveName = sheetFileName(fc.FileName, sheet.name)
		}

		sheetFragments := s.packRows(sheet.rows, page, effectiveName)
		fragments = append(fragments, sheetFragments...)
		page += len(sheetFragments)
	}
	return fragments
}

// readLegacyWorkbook reads the sheets of an Excel 97-2003 (BIFF) workbook.
func readLegacyWorkbook(content []byte) ([]workbookSheet, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, err
	}

	sheets := make([]workbookSheet, 0, workbook.NumSheets())
	for i := 0; i < workbook.NumSheets(); i++ {
		sheet := workbook.GetSheet(i)
		if sheet == nil {
			continue
		}

		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			var cells []string
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		}
		sheets = append(sheets, workbookSheet{name: sheet.Name, rows: rows})
	}
	return sheets, nil
}

// packRows joins each row with commas and packs rows into chunks by the
// character budget. The header line rides along on every chunk but never
// counts against the budget.
func (s *tabularStrategy) packRows(rows [][]string, startPage int, fileName string) []Fragment {
	if len(rows) == 0 {
		return nil
	}

	header := strings.Join(rows[0], ",")
	var fragments []Fragment
	page := startPage

	var buf []string
	bufChars := 0
	emit := func() {
		if len(buf) == 0 {
			return
		}
		fragments = append(fragments, Fragment{
			PageNumber: page,
			Text:       header + "\n" + strings.Join(buf, "\n"),
			FileName:   fileName,
		})
		page++
		buf = nil
		bufChars = 0
	}

	for _, row := range rows[1:] {
		line := strings.Join(row, ",")
		if bufChars > 0 && bufChars+len(line)+1 > s.chunkChars {
			emit()
		}
		buf = append(buf, line)
		bufChars += len(line) + 1
	}
	emit()

	return fragments
}

// sheetFileName derives the effective per-sheet file name: base-sheet.ext
func sheetFileName(fileName, sheet string) string {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	return fmt.Sprintf("%s-%s%s", base, sheet, ext)
}
