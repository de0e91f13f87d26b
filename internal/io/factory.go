package io

import (
	"fmt"
	"strings"

	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/logging"
	"parqconvert/internal/schema"
)

// NewInputReader creates the reader backend named by the input configuration.
func NewInputReader(cfg config.InputConfig) (InputReader, error) {
	readerType := strings.ToLower(cfg.Reader)
	logging.Logf(logging.Debug, "Creating input reader for type: %s", readerType)

	switch readerType {
	case config.ReaderTypeCSV:
		return NewCSVReader(cfg.Options), nil
	case config.ReaderTypeXLSX:
		return NewXLSXReader(cfg.Options), nil
	case config.ReaderTypeParquet:
		return NewParquetReader(cfg.Options), nil
	default:
		return nil, fmt.Errorf("%w: unsupported reader type '%s'", errs.ErrConfig, cfg.Reader)
	}
}

// NewOutputWriter creates the writer backend named by the output
// configuration, bound to one output path and write schema.
func NewOutputWriter(writerType, path string, writeSchema schema.RecordSchema) (OutputWriter, error) {
	logging.Logf(logging.Debug, "Creating output writer for type: %s path: %s", writerType, path)

	switch strings.ToLower(writerType) {
	case config.WriterTypeParquet:
		return NewParquetWriter(path, writeSchema)
	default:
		return nil, fmt.Errorf("%w: unsupported writer type '%s'", errs.ErrConfig, writerType)
	}
}
