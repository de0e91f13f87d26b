package adjuster

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"parqconvert/internal/batch"
	"parqconvert/internal/config"
	"parqconvert/internal/finder"
	"parqconvert/internal/schema"
)

func makeBatch(t *testing.T, n int) *batch.Batch {
	t.Helper()
	bld := array.NewInt64Builder(memory.DefaultAllocator)
	defer bld.Release()
	for i := 0; i < n; i++ {
		bld.Append(int64(i + 1))
	}
	col := bld.NewArray()
	rec := array.NewRecord(
		arrow.NewSchema([]arrow.Field{{Name: "qty", Type: arrow.PrimitiveTypes.Int64}}, nil),
		[]arrow.Array{col}, int64(n))
	col.Release()
	return batch.New(rec)
}

func makeRawFile() *finder.RawFile {
	return &finder.RawFile{
		FullPath: "/data/trades_20260115.csv",
		FullName: "trades_20260115.csv",
		FileName: "trades_20260115.csv",
		DateParts: map[string]string{
			"YYYY": "2026", "MM": "01", "DD": "15", "YYYYMMDD": "20260115",
		},
		ExtractVars: map[string]interface{}{"exchange": "nyse", "seq": int64(7)},
		Meta: finder.FileMeta{
			Path:  "/data/trades_20260115.csv",
			Name:  "trades_20260115.csv",
			Mtime: time.Date(2026, 1, 15, 18, 0, 0, 0, time.UTC),
			Size:  1234,
		},
		FileType:     config.FileTypeDate,
		CreationTime: time.Date(2026, 1, 16, 8, 0, 0, 0, time.UTC),
		D:            "20260115",
	}
}

func column(t *testing.T, b *batch.Batch, name string) arrow.Array {
	t.Helper()
	col, err := b.Column(name)
	if err != nil {
		t.Fatalf("Column(%s) failed: %v", name, err)
	}
	return col
}

func TestStandardProvenanceColumns(t *testing.T) {
	adj, err := NewStandard(config.MetadataConfig{})
	if err != nil {
		t.Fatalf("NewStandard failed: %v", err)
	}

	out, next, err := adj.Adjust(context.Background(), makeBatch(t, 3), makeRawFile(), 0)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	defer out.Release()

	if next != 3 {
		t.Errorf("next index = %d, want 3", next)
	}

	src := column(t, out, schema.ColSourceFile).(*array.String)
	if src.Value(0) != "trades_20260115.csv" {
		t.Errorf("_source_file = %q, want trades_20260115.csv", src.Value(0))
	}

	// Knowledge time defaults to the filename date at midnight UTC.
	kt := column(t, out, schema.ColKnowledgeTime).(*array.Timestamp)
	want := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := kt.Value(0).ToTime(arrow.Microsecond); !got.Equal(want) {
		t.Errorf("_knowledge_time = %v, want %v", got, want)
	}

	kd := column(t, out, schema.ColKnowledgeDate).(*array.Date32)
	if got := kd.Value(0).ToTime(); !got.Equal(want) {
		t.Errorf("_knowledge_date = %v, want %v", got, want)
	}

	idx := column(t, out, schema.ColIndex).(*array.Int64)
	for row, wantIdx := range []int64{0, 1, 2} {
		if idx.Value(row) != wantIdx {
			t.Errorf("_index[%d] = %d, want %d", row, idx.Value(row), wantIdx)
		}
	}
}

func TestIndexContinuesAcrossBatches(t *testing.T) {
	adj, err := NewStandard(config.MetadataConfig{})
	if err != nil {
		t.Fatalf("NewStandard failed: %v", err)
	}
	raw := makeRawFile()

	first, next, err := adj.Adjust(context.Background(), makeBatch(t, 2), raw, 0)
	if err != nil {
		t.Fatalf("first Adjust failed: %v", err)
	}
	first.Release()

	second, next, err := adj.Adjust(context.Background(), makeBatch(t, 2), raw, next)
	if err != nil {
		t.Fatalf("second Adjust failed: %v", err)
	}
	defer second.Release()

	if next != 4 {
		t.Errorf("next index = %d, want 4", next)
	}
	idx := column(t, second, schema.ColIndex).(*array.Int64)
	if idx.Value(0) != 2 || idx.Value(1) != 3 {
		t.Errorf("_index = [%d %d], want [2 3]", idx.Value(0), idx.Value(1))
	}
}

func TestKnowledgeTimeTimezoneConversion(t *testing.T) {
	md := config.MetadataConfig{
		KnowledgeTime: &config.KnowledgeTimeConfig{
			From: config.KnowledgeTimeFromFileName,
			TZ:   "America/New_York",
		},
	}
	adj, err := NewStandard(md)
	if err != nil {
		t.Fatalf("NewStandard failed: %v", err)
	}

	out, _, err := adj.Adjust(context.Background(), makeBatch(t, 1), makeRawFile(), 0)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	defer out.Release()

	// Midnight Jan 15 in New York is 05:00 UTC.
	kt := column(t, out, schema.ColKnowledgeTime).(*array.Timestamp)
	want := time.Date(2026, 1, 15, 5, 0, 0, 0, time.UTC)
	if got := kt.Value(0).ToTime(arrow.Microsecond); !got.Equal(want) {
		t.Errorf("_knowledge_time = %v, want %v", got, want)
	}

	// 05:00 UTC is still Jan 15 in UTC, so the date is unchanged here.
	kd := column(t, out, schema.ColKnowledgeDate).(*array.Date32)
	wantDate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := kd.Value(0).ToTime(); !got.Equal(wantDate) {
		t.Errorf("_knowledge_date = %v, want %v", got, wantDate)
	}
}

func TestKnowledgeDateIsUTCDate(t *testing.T) {
	// A zone ahead of UTC: midnight Jan 15 in Tokyo is 15:00 UTC on
	// Jan 14, so the knowledge date rolls back a day.
	md := config.MetadataConfig{
		KnowledgeTime: &config.KnowledgeTimeConfig{
			From: config.KnowledgeTimeFromFileName,
			TZ:   "Asia/Tokyo",
		},
	}
	adj, err := NewStandard(md)
	if err != nil {
		t.Fatalf("NewStandard failed: %v", err)
	}

	out, _, err := adj.Adjust(context.Background(), makeBatch(t, 1), makeRawFile(), 0)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	defer out.Release()

	kt := column(t, out, schema.ColKnowledgeTime).(*array.Timestamp)
	wantTime := time.Date(2026, 1, 14, 15, 0, 0, 0, time.UTC)
	if got := kt.Value(0).ToTime(arrow.Microsecond); !got.Equal(wantTime) {
		t.Errorf("_knowledge_time = %v, want %v", got, wantTime)
	}

	kd := column(t, out, schema.ColKnowledgeDate).(*array.Date32)
	wantDate := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)
	if got := kd.Value(0).ToTime(); !got.Equal(wantDate) {
		t.Errorf("_knowledge_date = %v, want %v", got, wantDate)
	}
}

func TestKnowledgeTimeFromMtime(t *testing.T) {
	md := config.MetadataConfig{
		KnowledgeTime: &config.KnowledgeTimeConfig{From: config.KnowledgeTimeFromFileMtime},
	}
	adj, err := NewStandard(md)
	if err != nil {
		t.Fatalf("NewStandard failed: %v", err)
	}

	raw := makeRawFile()
	out, _, err := adj.Adjust(context.Background(), makeBatch(t, 1), raw, 0)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	defer out.Release()

	kt := column(t, out, schema.ColKnowledgeTime).(*array.Timestamp)
	if got := kt.Value(0).ToTime(arrow.Microsecond); !got.Equal(raw.Meta.Mtime) {
		t.Errorf("_knowledge_time = %v, want %v", got, raw.Meta.Mtime)
	}
}

func TestAdditionalMetadataSources(t *testing.T) {
	md := config.MetadataConfig{
		AdditionalMetadata: []config.AdditionalMetadataField{
			{Name: "exchange", Source: "extract_vars.exchange", Type: "string"},
			{Name: "seq_scaled", Source: "extract_vars.seq", Type: "int64", Expr: "value * 100"},
			{Name: "size_bytes", Source: "metadata.file_size", Type: "int64"},
			{Name: "qty_pct", Source: "column.qty", Type: "double", Expr: "value / 10"},
		},
	}
	adj, err := NewStandard(md)
	if err != nil {
		t.Fatalf("NewStandard failed: %v", err)
	}

	out, _, err := adj.Adjust(context.Background(), makeBatch(t, 2), makeRawFile(), 0)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	defer out.Release()

	if got := column(t, out, "exchange").(*array.String).Value(0); got != "nyse" {
		t.Errorf("exchange = %q, want nyse", got)
	}
	if got := column(t, out, "seq_scaled").(*array.Int64).Value(0); got != 700 {
		t.Errorf("seq_scaled = %d, want 700", got)
	}
	if got := column(t, out, "size_bytes").(*array.Int64).Value(1); got != 1234 {
		t.Errorf("size_bytes = %d, want 1234", got)
	}
	pct := column(t, out, "qty_pct").(*array.Float64)
	if pct.Value(0) != 0.1 || pct.Value(1) != 0.2 {
		t.Errorf("qty_pct = [%v %v], want [0.1 0.2]", pct.Value(0), pct.Value(1))
	}
}

func TestAdditionalMetadataMissingVarIsNull(t *testing.T) {
	md := config.MetadataConfig{
		AdditionalMetadata: []config.AdditionalMetadataField{
			{Name: "missing", Source: "extract_vars.absent", Type: "string"},
		},
	}
	adj, err := NewStandard(md)
	if err != nil {
		t.Fatalf("NewStandard failed: %v", err)
	}

	out, _, err := adj.Adjust(context.Background(), makeBatch(t, 2), makeRawFile(), 0)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	defer out.Release()

	if got := column(t, out, "missing").NullN(); got != 2 {
		t.Errorf("null count = %d, want 2", got)
	}
}

func TestHeaderTimeAdjuster(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	content := "# generated 2026-01-15 09:30:00\nid,qty\n1,10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	md := config.MetadataConfig{
		KnowledgeTime: &config.KnowledgeTimeConfig{
			From:          config.KnowledgeTimeFromFileName,
			TZ:            "UTC",
			HeaderLine:    1,
			HeaderPattern: `# generated (.*)`,
		},
	}
	adj, err := NewHeaderTime(md)
	if err != nil {
		t.Fatalf("NewHeaderTime failed: %v", err)
	}

	raw := makeRawFile()
	raw.FullPath = path
	raw.FullName = "report.csv"
	raw.FileName = "report.csv"

	out, _, err := adj.Adjust(context.Background(), makeBatch(t, 1), raw, 0)
	if err != nil {
		t.Fatalf("Adjust failed: %v", err)
	}
	defer out.Release()

	kt := column(t, out, schema.ColKnowledgeTime).(*array.Timestamp)
	want := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	if got := kt.Value(0).ToTime(arrow.Microsecond); !got.Equal(want) {
		t.Errorf("_knowledge_time = %v, want %v", got, want)
	}

	if _, ok := adj.cache[path]; !ok {
		t.Error("header time not cached after Adjust")
	}
}

func TestNewUnknownAdjuster(t *testing.T) {
	if _, err := New("bogus", config.MetadataConfig{}); err == nil {
		t.Fatal("New succeeded, want error for unknown adjuster")
	}
}
