package io

import (
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	stdio "io"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"

	"parqconvert/internal/batch"
	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/schema"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%q) failed: %v", path, err)
	}
}

// readAll drains an iterator into one slice of batches.
func readAll(t *testing.T, it BatchIterator) []*batch.Batch {
	t.Helper()
	var batches []*batch.Batch
	for {
		b, err := it.Next(context.Background())
		if err == stdio.EOF {
			return batches
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		batches = append(batches, b)
	}
}

func totalRows(batches []*batch.Batch) int64 {
	var n int64
	for _, b := range batches {
		n += b.NumRows()
	}
	return n
}

func TestCSVReaderTypedColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")
	writeFile(t, path, "id,price,active,note\n1,9.5,true,alpha\n2,10.25,false,\n")

	readSchema := schema.RecordSchema{Fields: []schema.Field{
		{Name: "id", Type: schema.Int64, Nullable: true},
		{Name: "price", Type: schema.Double, Nullable: true},
		{Name: "active", Type: schema.Bool, Nullable: true},
	}}

	reader := NewCSVReader(nil)
	h, err := reader.Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	it, err := reader.Read(context.Background(), h, readSchema)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer it.Close()

	batches := readAll(t, it)
	if totalRows(batches) != 2 {
		t.Fatalf("rows = %d, want 2", totalRows(batches))
	}
	b := batches[0]
	defer b.Release()

	ids, err := b.Column("id")
	if err != nil {
		t.Fatalf("Column(id) failed: %v", err)
	}
	if got := ids.(*array.Int64).Value(1); got != 2 {
		t.Errorf("id[1] = %d, want 2", got)
	}
	prices, _ := b.Column("price")
	if got := prices.(*array.Float64).Value(0); got != 9.5 {
		t.Errorf("price[0] = %v, want 9.5", got)
	}
	// A column absent from the read schema stays string, and empty cells
	// are null.
	notes, _ := b.Column("note")
	if got := notes.(*array.String).Value(0); got != "alpha" {
		t.Errorf("note[0] = %q, want alpha", got)
	}
	if !notes.IsNull(1) {
		t.Error("note[1] should be null")
	}
}

func TestCSVReaderParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	writeFile(t, path, "id\nnot-a-number\n")

	reader := NewCSVReader(nil)
	h, err := reader.Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	readSchema := schema.RecordSchema{Fields: []schema.Field{
		{Name: "id", Type: schema.Int64, Nullable: true},
	}}
	it, err := reader.Read(context.Background(), h, readSchema)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer it.Close()

	_, err = it.Next(context.Background())
	if err == nil {
		t.Fatal("Next succeeded, want parse error")
	}
	if !errors.Is(err, errs.ErrStream) {
		t.Errorf("error = %v, want errs.ErrStream", err)
	}
}

func TestCSVReaderSkipRowsAndFooter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	content := "generated by vendor\nid,qty\n1,10\n2,20\n3,30\nTOTAL,60\n"
	writeFile(t, path, content)

	opts := &config.ReaderOptions{SkipRows: 1, SkipFooter: 1}
	reader := NewCSVReader(opts)
	h, err := reader.Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	readSchema := schema.RecordSchema{Fields: []schema.Field{
		{Name: "id", Type: schema.Int64, Nullable: true},
		{Name: "qty", Type: schema.Int64, Nullable: true},
	}}
	it, err := reader.Read(context.Background(), h, readSchema)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer it.Close()

	batches := readAll(t, it)
	if totalRows(batches) != 3 {
		t.Fatalf("rows = %d, want 3 (footer dropped)", totalRows(batches))
	}
	for _, b := range batches {
		b.Release()
	}
}

func TestCSVReaderGzipByMagicBytes(t *testing.T) {
	dir := t.TempDir()
	// Deliberately no .gz extension: detection is content-based.
	path := filepath.Join(dir, "data.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte("id\n7\n")); err != nil {
		t.Fatalf("gzip Write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader := NewCSVReader(nil)
	h, err := reader.Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	header, err := reader.Sample(h)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(header) != 1 || header[0] != "id" {
		t.Errorf("header = %v, want [id]", header)
	}
}

func TestCSVReaderArchiveMember(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("inner.csv")
	if err != nil {
		t.Fatalf("zip Create failed: %v", err)
	}
	if _, err := w.Write([]byte("sym,qty\nAAA,5\n")); err != nil {
		t.Fatalf("zip Write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader := NewCSVReader(nil)
	h, err := reader.Open(archivePath+"|inner.csv", true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	it, err := reader.Read(context.Background(), h, schema.RecordSchema{})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer it.Close()

	batches := readAll(t, it)
	if totalRows(batches) != 1 {
		t.Fatalf("rows = %d, want 1", totalRows(batches))
	}
	syms, err := batches[0].Column("sym")
	if err != nil {
		t.Fatalf("Column(sym) failed: %v", err)
	}
	if got := syms.(*array.String).Value(0); got != "AAA" {
		t.Errorf("sym[0] = %q, want AAA", got)
	}
	batches[0].Release()
}
