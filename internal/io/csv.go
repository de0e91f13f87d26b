package io

import (
	"context"
	"encoding/csv"
	"fmt"
	stdio "io"

	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/schema"
	"parqconvert/internal/util"
)

// CSVReader streams delimited text sources. Compression (gzip, bzip2, xz) is
// detected from magic bytes, so a mislabeled extension still decompresses
// correctly.
type CSVReader struct {
	opts *config.ReaderOptions
}

// NewCSVReader constructs a CSV reader with the given options; nil options
// select the defaults.
func NewCSVReader(opts *config.ReaderOptions) *CSVReader {
	return &CSVReader{opts: opts}
}

// Open opens the source and wraps it with the detected decompressor.
func (r *CSVReader) Open(path string, isArchive bool) (*Handle, error) {
	h, err := OpenSource(path, isArchive)
	if err != nil {
		return nil, err
	}
	stream, err := util.OpenDecompressed(h.Stream)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("%w: decompressing '%s': %v", errs.ErrStream, path, err)
	}
	h.Stream = stream
	// The on-disk bytes may be compressed; random-access backends must not
	// reuse them.
	h.LocalPath = ""
	return h, nil
}

// newRecordReader builds the csv.Reader positioned past skipRows.
func (r *CSVReader) newRecordReader(h *Handle) (*csv.Reader, error) {
	cr := csv.NewReader(h.Stream)
	cr.Comma = r.opts.DelimiterRune()
	if c := r.opts.CommentRune(); c != 0 {
		cr.Comment = c
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	skip := 0
	if r.opts != nil {
		skip = r.opts.SkipRows
	}
	for i := 0; i < skip; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("%w: '%s' ended within the %d skipped leading rows", errs.ErrStream, h.Path, skip)
		}
	}
	return cr, nil
}

// Sample reads the header row and returns its column names.
func (r *CSVReader) Sample(h *Handle) ([]string, error) {
	cr, err := r.newRecordReader(h)
	if err != nil {
		return nil, err
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header of '%s': %v", errs.ErrStream, h.Path, err)
	}
	return header, nil
}

// Read streams the source as typed batches. The first unskipped row is the
// header; its names define the batch columns.
func (r *CSVReader) Read(ctx context.Context, h *Handle, readSchema schema.RecordSchema) (BatchIterator, error) {
	cr, err := r.newRecordReader(h)
	if err != nil {
		return nil, err
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header of '%s': %v", errs.ErrStream, h.Path, err)
	}

	builder, err := newTextBatchBuilder(h.Path, header, readSchema, r.opts)
	if err != nil {
		return nil, err
	}
	return newTextIterator(&csvRowSource{reader: cr}, builder, r.opts), nil
}

type csvRowSource struct {
	reader *csv.Reader
}

func (s *csvRowSource) nextRow() ([]string, error) {
	row, err := s.reader.Read()
	if err == stdio.EOF {
		return nil, stdio.EOF
	}
	return row, err
}

func (s *csvRowSource) close() error { return nil }
