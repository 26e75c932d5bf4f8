package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/xuri/excelize/v2"
)

// Table parses the file as CSV first and falls back to a spreadsheet,
// then renders the rows as a flat table string. The first row is the header.
func Table(path string) (string, error) {
	rows, csvErr := readCSV(path)
	if csvErr != nil {
		var err error
		rows, err = readSpreadsheet(path)
		if err != nil {
			return "", errors.Join(fmt.Errorf("as csv: %w", csvErr), fmt.Errorf("as spreadsheet: %w", err))
		}
	}
	return renderTable(rows), nil
}

func readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errors.New("not UTF-8 text")
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func readSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return "Empty table"
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	// Blank or missing header cells are named like pandas does.
	header := make([]string, cols+1)
	for i := range cols {
		if i < len(rows[0]) && rows[0][i] != "" {
			header[i+1] = rows[0][i]
		} else {
			header[i+1] = "Unnamed: " + strconv.Itoa(i)
		}
	}
	width := len(header)
	body := make([][]string, 0, len(rows)-1)
	for i, r := range rows[1:] {
		line := make([]string, width)
		line[0] = strconv.Itoa(i)
		copy(line[1:], r)
		body = append(body, line)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(header...).
		Rows(body...)
	return t.String()
}
