package legacy

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CSVOpener opens tables from a directory holding one CSV file per table
// (<dir>/<table>.csv, first record is the column header).
type CSVOpener struct {
	Dir         string
	DateFormats []string
}

// NewCSVOpener creates a CSVOpener over the given export directory.
func NewCSVOpener(dir string, dateFormats []string) *CSVOpener {
	return &CSVOpener{Dir: dir, DateFormats: dateFormats}
}

// Open opens the table's file, reads the header and binds the schema.
// A missing required column fails here, before any row is read.
func (o *CSVOpener) Open(table string, schema Schema) (Source, error) {
	path := filepath.Join(o.Dir, table+".csv")

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source table %q: %w", table, err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // short records read as nil cells

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("source table %q is empty: %w", table, ErrSchemaMismatch)
		}
		return nil, fmt.Errorf("failed to read header of table %q: %w", table, err)
	}

	binding, err := schema.Bind(header)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &CSVSource{
		path:        path,
		file:        file,
		reader:      reader,
		binding:     binding,
		dateFormats: o.DateFormats,
	}, nil
}

// CSVSource streams rows out of one CSV file. Cells arrive as strings;
// typed access goes through the Row accessors.
type CSVSource struct {
	path        string
	file        *os.File
	reader      *csv.Reader
	binding     *Binding
	dateFormats []string
}

// Table returns the source table name.
func (s *CSVSource) Table() string {
	return s.binding.Table()
}

// Next returns the next row, or io.EOF at end of file.
func (s *CSVSource) Next() (Row, error) {
	record, err := s.reader.Read()
	if err != nil {
		if err == io.EOF {
			return Row{}, io.EOF
		}
		return Row{}, fmt.Errorf("failed to read row from table %q: %w", s.Table(), err)
	}

	values := make([]Value, len(record))
	for i, cell := range record {
		if cell == "" {
			values[i] = nil
		} else {
			values[i] = cell
		}
	}

	return NewRow(s.binding, values, s.dateFormats), nil
}

// Count reports the number of data rows by scanning a second handle on the
// file. The streaming position is unaffected.
func (s *CSVSource) Count() (int, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows of table %q: %w", s.Table(), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	count := 0
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count rows of table %q: %w", s.Table(), err)
		}
		count++
	}

	// Exclude the header row.
	if count > 0 {
		count--
	}
	return count, nil
}

// Close releases the underlying file.
func (s *CSVSource) Close() error {
	return s.file.Close()
}
