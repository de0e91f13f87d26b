package io

import (
	"context"
	"fmt"
	stdio "io"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"parqconvert/internal/batch"
	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/logging"
	"parqconvert/internal/schema"
	"parqconvert/internal/util"
)

// ParquetReader streams batches from an existing columnar file, the
// passthrough path for sources that are already in the output format.
// Parquet needs random access, so archive members are extracted to a
// scratch file first.
type ParquetReader struct {
	opts *config.ReaderOptions
}

// NewParquetReader constructs a parquet reader.
func NewParquetReader(opts *config.ReaderOptions) *ParquetReader {
	return &ParquetReader{opts: opts}
}

// Open opens the source and guarantees a concrete on-disk path.
func (r *ParquetReader) Open(path string, isArchive bool) (*Handle, error) {
	h, err := OpenSource(path, isArchive)
	if err != nil {
		return nil, err
	}
	if _, err := h.materialize(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (r *ParquetReader) openFile(h *Handle) (*file.Reader, *pqarrow.FileReader, error) {
	rdr, err := file.OpenParquetFile(h.LocalPath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening parquet file '%s': %v", errs.ErrStream, h.Path, err)
	}
	props := pqarrow.ArrowReadProperties{BatchSize: int64(r.opts.EffectiveBatchRows())}
	fr, err := pqarrow.NewFileReader(rdr, props, memory.DefaultAllocator)
	if err != nil {
		rdr.Close()
		return nil, nil, fmt.Errorf("%w: reading parquet metadata of '%s': %v", errs.ErrStream, h.Path, err)
	}
	return rdr, fr, nil
}

// Sample returns the file's column names from its embedded schema.
func (r *ParquetReader) Sample(h *Handle) ([]string, error) {
	rdr, fr, err := r.openFile(h)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()

	arrowSchema, err := fr.Schema()
	if err != nil {
		return nil, fmt.Errorf("%w: reading schema of '%s': %v", errs.ErrStream, h.Path, err)
	}
	names := make([]string, arrowSchema.NumFields())
	for i := 0; i < arrowSchema.NumFields(); i++ {
		names[i] = arrowSchema.Field(i).Name
	}
	return names, nil
}

// Read streams the file's record batches.
func (r *ParquetReader) Read(ctx context.Context, h *Handle, readSchema schema.RecordSchema) (BatchIterator, error) {
	rdr, fr, err := r.openFile(h)
	if err != nil {
		return nil, err
	}
	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		rdr.Close()
		return nil, fmt.Errorf("%w: reading '%s': %v", errs.ErrStream, h.Path, err)
	}
	return &parquetIterator{path: h.Path, file: rdr, records: rr}, nil
}

type parquetIterator struct {
	path    string
	file    *file.Reader
	records pqarrow.RecordReader
}

func (it *parquetIterator) Next(ctx context.Context) (*batch.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !it.records.Next() {
		if err := it.records.Err(); err != nil && err != stdio.EOF {
			return nil, fmt.Errorf("%w: reading '%s': %v", errs.ErrStream, it.path, err)
		}
		return nil, stdio.EOF
	}
	rec := it.records.Record()
	rec.Retain()
	return batch.New(rec), nil
}

func (it *parquetIterator) Close() error {
	it.records.Release()
	return it.file.Close()
}

// ParquetWriter writes one output file with atomic commit semantics: all
// batches go to "<path>.tmp", Close renames onto the final path and writes
// an md5 digest sidecar. A crash before Close leaves only the tmp file, so
// a final-path file always holds a complete dataset.
type ParquetWriter struct {
	finalPath string
	tmpPath   string
	sink      *os.File
	writer    *pqarrow.FileWriter
	rows      int64
	closed    bool
}

// NewParquetWriter creates the output directory and opens the tmp sink for
// the declared write schema.
func NewParquetWriter(path string, writeSchema schema.RecordSchema) (*ParquetWriter, error) {
	arrowSchema, err := batch.ToArrowSchema(writeSchema)
	if err != nil {
		return nil, err
	}
	if err := util.CreateDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%w: creating output directory for '%s': %v", errs.ErrCommit, path, err)
	}

	tmpPath := path + ".tmp"
	sink, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("%w: creating '%s': %v", errs.ErrCommit, tmpPath, err)
	}

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	writer, err := pqarrow.NewFileWriter(arrowSchema, sink, props, pqarrow.DefaultWriterProps())
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("%w: opening parquet writer for '%s': %v", errs.ErrCommit, path, err)
	}
	return &ParquetWriter{finalPath: path, tmpPath: tmpPath, sink: sink, writer: writer}, nil
}

// Write appends one batch. The batch must already conform to the write
// schema.
func (w *ParquetWriter) Write(ctx context.Context, b *batch.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.writer.Write(b.Record()); err != nil {
		return fmt.Errorf("%w: writing batch to '%s': %v", errs.ErrCommit, w.tmpPath, err)
	}
	w.rows += b.NumRows()
	return nil
}

// Close finalizes the tmp file, renames it onto the final path, and writes
// the md5 sidecar. Idempotent; only the first call commits.
func (w *ParquetWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.sink.Close()
		return fmt.Errorf("%w: finalizing '%s': %v", errs.ErrCommit, w.tmpPath, err)
	}
	if err := w.sink.Close(); err != nil {
		return fmt.Errorf("%w: closing '%s': %v", errs.ErrCommit, w.tmpPath, err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		return fmt.Errorf("%w: committing '%s': %v", errs.ErrCommit, w.finalPath, err)
	}

	digest, err := util.MD5File(w.finalPath)
	if err != nil {
		return fmt.Errorf("%w: digesting '%s': %v", errs.ErrCommit, w.finalPath, err)
	}
	if err := util.WriteMD5Sidecar(w.finalPath, digest); err != nil {
		return fmt.Errorf("%w: writing sidecar for '%s': %v", errs.ErrCommit, w.finalPath, err)
	}
	logging.Logf(logging.Info, "Committed %s (%d rows, md5 %s)", w.finalPath, w.rows, digest)
	return nil
}
