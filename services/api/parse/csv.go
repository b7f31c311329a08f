package parse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV parses comma-separated text with a header row into a Table.
// Cells are kept as raw strings; typing happens at classification time.
type CSV struct {
	// Comma overrides the field delimiter (default ',').
	Comma rune
}

// ParseTable implements TableParser.
func (p CSV) ParseTable(data []byte) (*dataset.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, emptyErr("csv has no content")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if p.Comma != 0 {
		reader.Comma = p.Comma
	}

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, row)
	}

	return dataset.NewTable(headers, rows), nil
}
