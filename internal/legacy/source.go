package legacy

// Source is a lazy, forward-only stream of rows from one source table.
// It has exactly one consumer and is not restartable once drained.
// Next returns io.EOF after the last row.
type Source interface {
	// Table returns the source table name.
	Table() string

	// Next returns the next row, or io.EOF at end of stream.
	Next() (Row, error)

	// Close releases the underlying reader.
	Close() error
}

// Counter is implemented by sources that can report their total row count
// up front. When available, progress is reported as a percentage; otherwise
// only cumulative counts are shown.
type Counter interface {
	Count() (int, error)
}

// Opener opens a named table from the configured source. The CSV opener
// maps table names to files; the binary table scanner is an external
// collaborator satisfying the same interface.
type Opener interface {
	Open(table string, schema Schema) (Source, error)
}
