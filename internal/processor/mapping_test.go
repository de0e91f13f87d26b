package processor

import (
	"errors"
	"path/filepath"
	"testing"

	"parqconvert/internal/errs"
)

func TestMapOutput(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "orders.json"), testManifest)
	writeTestFile(t, filepath.Join(dir, "raw", "orders_20260115.csv"),
		"id,legacy\n1,x\n")
	writeTestFile(t, filepath.Join(dir, "raw", "orders_20260116.csv"),
		"id,legacy\n2,y\n")

	p, err := New(testConfig(dir, false), "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	files, err := p.MapOutput(filepath.Join(dir, "out", "orders_20260115.parq"), "orders", nil)
	if err != nil {
		t.Fatalf("MapOutput failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d raw files, want 1", len(files))
	}
	want := filepath.Join(dir, "raw", "orders_20260115.csv")
	if files[0].FullPath != want {
		t.Errorf("FullPath = %q, want %q", files[0].FullPath, want)
	}
	if files[0].D != "20260115" {
		t.Errorf("D = %q, want 20260115", files[0].D)
	}
}

func TestMapOutputPathMismatch(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "orders.json"), testManifest)

	p, err := New(testConfig(dir, false), "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = p.MapOutput(filepath.Join(dir, "out", "orders.parq"), "orders", nil)
	if !errors.Is(err, errs.ErrConfig) {
		t.Errorf("error = %v, want errs.ErrConfig for a path the template cannot parse", err)
	}
}

func TestMapOutputNoRawFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "orders.json"), testManifest)

	p, err := New(testConfig(dir, false), "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	files, err := p.MapOutput(filepath.Join(dir, "out", "orders_20260115.parq"), "orders", nil)
	if err != nil {
		t.Fatalf("MapOutput failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d raw files, want 0", len(files))
	}
}

func TestMapOutputUnknownTable(t *testing.T) {
	dir := t.TempDir()
	p, err := New(testConfig(dir, false), "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = p.MapOutput(filepath.Join(dir, "out", "trades_20260115.parq"), "trades", nil)
	if !errors.Is(err, errs.ErrConfig) {
		t.Errorf("error = %v, want errs.ErrConfig for unknown table", err)
	}
}
