// Package importer parses student roster spreadsheets into plain rows. It is
// a boundary producer only: every admission and field rule lives in the
// validation engine, not here.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/edupanel/attendance-core/internal/models"
)

// Sheet is the parsed content of one worksheet.
type Sheet struct {
	Headers []string
	Rows    []models.StudentImportRow
}

// ReadXLSX parses the first worksheet of an .xlsx stream. Row numbers are
// 1-indexed sheet rows; the header occupies row 1 and is returned separately
// so structural validation can run before any per-row work. Fully empty rows
// are skipped.
func ReadXLSX(r io.Reader) (Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, fmt.Errorf("spreadsheet has no worksheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("read worksheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return Sheet{}, fmt.Errorf("worksheet %s is empty", sheets[0])
	}

	out := Sheet{}
	columns := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(header))
		out.Headers = append(out.Headers, name)
		columns[name] = i
	}

	for i, cells := range rows[1:] {
		if empty(cells) {
			continue
		}
		row := models.StudentImportRow{
			Row:          i + 2,
			ExternalCode: cell(cells, columns, "external_code"),
			Name:         cell(cells, columns, "name"),
			Email:        cell(cells, columns, "email"),
			GroupID:      cell(cells, columns, "group_id"),
		}
		if raw := cell(cells, columns, "discipline_score"); raw != "" {
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Sheet{}, fmt.Errorf("row %d: discipline_score %q is not numeric", row.Row, raw)
			}
			row.DisciplineScore = score
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func cell(cells []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func empty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
