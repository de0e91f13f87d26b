package io

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"parqconvert/internal/batch"
	"parqconvert/internal/config"
	"parqconvert/internal/schema"
)

var testSchema = schema.RecordSchema{Fields: []schema.Field{
	{Name: "id", Type: schema.Int64, Nullable: false},
	{Name: "name", Type: schema.String, Nullable: true},
}}

func makeTestBatch(t *testing.T, ids []int64, names []string) *batch.Batch {
	t.Helper()
	mem := memory.DefaultAllocator
	idBld := array.NewInt64Builder(mem)
	defer idBld.Release()
	idBld.AppendValues(ids, nil)
	nameBld := array.NewStringBuilder(mem)
	defer nameBld.Release()
	nameBld.AppendValues(names, nil)

	arrowSchema, err := batch.ToArrowSchema(testSchema)
	if err != nil {
		t.Fatalf("ToArrowSchema failed: %v", err)
	}
	idCol := idBld.NewArray()
	nameCol := nameBld.NewArray()
	rec := array.NewRecord(arrowSchema, []arrow.Array{idCol, nameCol}, int64(len(ids)))
	idCol.Release()
	nameCol.Release()
	return batch.New(rec)
}

func TestParquetWriterAtomicCommit(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "nested", "out.parq")

	w, err := NewParquetWriter(outPath, testSchema)
	if err != nil {
		t.Fatalf("NewParquetWriter failed: %v", err)
	}

	b := makeTestBatch(t, []int64{1, 2}, []string{"a", "b"})
	if err := w.Write(context.Background(), b); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	b.Release()

	// Before Close only the tmp file exists.
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Fatal("final path exists before Close")
	}
	if _, err := os.Stat(outPath + ".tmp"); err != nil {
		t.Fatalf("tmp file missing before Close: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("final file missing after Close: %v", err)
	}
	if _, err := os.Stat(outPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("tmp file still present after Close")
	}

	sidecar, err := os.ReadFile(outPath + ".md5")
	if err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(string(sidecar)), "out.parq") {
		t.Errorf("sidecar content %q does not name out.parq", sidecar)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "round.parq")

	w, err := NewParquetWriter(outPath, testSchema)
	if err != nil {
		t.Fatalf("NewParquetWriter failed: %v", err)
	}
	b := makeTestBatch(t, []int64{10, 20, 30}, []string{"x", "y", "z"})
	if err := w.Write(context.Background(), b); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	b.Release()
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader := NewParquetReader(nil)
	h, err := reader.Open(outPath, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	names, err := reader.Sample(h)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if len(names) != 2 || names[0] != "id" || names[1] != "name" {
		t.Fatalf("columns = %v, want [id name]", names)
	}

	it, err := reader.Read(context.Background(), h, testSchema)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer it.Close()

	batches := readAll(t, it)
	if totalRows(batches) != 3 {
		t.Fatalf("rows = %d, want 3", totalRows(batches))
	}
	ids, err := batches[0].Column("id")
	if err != nil {
		t.Fatalf("Column(id) failed: %v", err)
	}
	if got := ids.(*array.Int64).Value(2); got != 30 {
		t.Errorf("id[2] = %d, want 30", got)
	}
	for _, rb := range batches {
		rb.Release()
	}
}

func TestParquetWriterEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "empty.parq")

	w, err := NewParquetWriter(outPath, testSchema)
	if err != nil {
		t.Fatalf("NewParquetWriter failed: %v", err)
	}
	empty, err := batch.Empty(testSchema)
	if err != nil {
		t.Fatalf("Empty failed: %v", err)
	}
	if err := w.Write(context.Background(), empty); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	empty.Release()
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader := NewParquetReader(nil)
	h, err := reader.Open(outPath, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()
	it, err := reader.Read(context.Background(), h, testSchema)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer it.Close()
	if rows := totalRows(readAll(t, it)); rows != 0 {
		t.Errorf("rows = %d, want 0", rows)
	}
}

func TestNewInputReaderUnknownType(t *testing.T) {
	if _, err := NewInputReader(config.InputConfig{Reader: "avro"}); err == nil {
		t.Fatal("NewInputReader succeeded, want error for unknown reader")
	}
}
