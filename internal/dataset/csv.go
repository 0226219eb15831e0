package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV parses a header-first CSV stream into a Table using the registered
// column kinds for name.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("dataset %q: empty file", name)
		}
		return nil, fmt.Errorf("dataset %q: read header: %w", name, err)
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}

	return Build(name, header, records, func(column string) Kind {
		return kindFor(name, column)
	})
}
