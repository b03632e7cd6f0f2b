package utils

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/vnkhanh/e-cert-backend/models"
)

var ErrInvalidCSV = errors.New("invalid csv")

// ParseRoster reads a CSV with a header row into ordered rows. Header names
// are trimmed. Short rows get "" for the missing columns, extra cells are
// dropped.
func ParseRoster(r io.Reader) ([]models.RowData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: file is not utf-8", ErrInvalidCSV)
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []models.RowData
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}

		var row models.RowData
		for i, col := range header {
			v := ""
			if i < len(record) {
				v = record[i]
			}
			row.Set(col, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
