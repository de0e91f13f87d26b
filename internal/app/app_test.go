package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"parqconvert/internal/config"
	"parqconvert/internal/finder"
)

// mockProcessor records the arguments of the Process and MapOutput calls.
type mockProcessor struct {
	table    string
	d        string
	params   map[string]string
	err      error
	calls    int
	mapPath  string
	mapCalls int
	mapFiles []*finder.RawFile
}

func (m *mockProcessor) Process(_ context.Context, tableName, d string, searchParams map[string]string) error {
	m.calls++
	m.table = tableName
	m.d = d
	m.params = searchParams
	return m.err
}

func (m *mockProcessor) MapOutput(outputPath, tableName string, searchParams map[string]string) ([]*finder.RawFile, error) {
	m.mapCalls++
	m.mapPath = outputPath
	m.table = tableName
	m.params = searchParams
	return m.mapFiles, m.err
}

// installMocks swaps the factory hooks for the duration of a test.
func installMocks(t *testing.T, mock *mockProcessor) {
	t.Helper()
	origNew := newProcessorFunc
	origStat := osStatFunc
	newProcessorFunc = func(cfg *config.Config, outputOverride string) (tableProcessor, error) {
		return mock, nil
	}
	t.Cleanup(func() {
		newProcessorFunc = origNew
		osStatFunc = origStat
	})
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
output:
  basedir: ` + dir + `
  fileTemplate: "{table}_{YYYYMMDD}.parq"
manifest:
  fileTemplate: "{table}.json"
tables:
  trades:
    rawFiles: ["` + dir + `/raw/trades_{YYYYMMDD}.csv"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestRunInvokesProcessor(t *testing.T) {
	mock := &mockProcessor{}
	installMocks(t, mock)
	cfgPath := writeTestConfig(t)

	runner := NewAppRunner()
	err := runner.Run([]string{"-config", cfgPath, "-table", "trades", "-d", "20260115", "-p", "region=emea,feed=a"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("processor called %d times, want 1", mock.calls)
	}
	if mock.table != "trades" || mock.d != "20260115" {
		t.Errorf("processor got (%q, %q), want (trades, 20260115)", mock.table, mock.d)
	}
	want := map[string]string{"region": "emea", "feed": "a"}
	if !reflect.DeepEqual(mock.params, want) {
		t.Errorf("search params = %v, want %v", mock.params, want)
	}
}

func TestRunPropagatesProcessorError(t *testing.T) {
	procErr := errors.New("boom")
	mock := &mockProcessor{err: procErr}
	installMocks(t, mock)
	cfgPath := writeTestConfig(t)

	runner := NewAppRunner()
	err := runner.Run([]string{"-config", cfgPath, "-table", "trades", "-d", "20260115"})
	if !errors.Is(err, procErr) {
		t.Errorf("Run error = %v, want the processor's error", err)
	}
}

func TestRunMissingArgs(t *testing.T) {
	mock := &mockProcessor{}
	installMocks(t, mock)
	cfgPath := writeTestConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no table", []string{"-config", cfgPath, "-d", "20260115"}},
		{"no d", []string{"-config", cfgPath, "-table", "trades"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := NewAppRunner()
			if err := runner.Run(tc.args); !errors.Is(err, ErrMissingArgs) {
				t.Errorf("Run error = %v, want ErrMissingArgs", err)
			}
		})
	}
	if mock.calls != 0 {
		t.Errorf("processor should not run with missing args, got %d calls", mock.calls)
	}
}

func TestRunConfigNotFound(t *testing.T) {
	mock := &mockProcessor{}
	installMocks(t, mock)

	runner := NewAppRunner()
	err := runner.Run([]string{"-config", filepath.Join(t.TempDir(), "absent.yaml"), "-table", "trades", "-d", "20260115"})
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Run error = %v, want ErrConfigNotFound", err)
	}
}

func TestRunMalformedSearchParams(t *testing.T) {
	mock := &mockProcessor{}
	installMocks(t, mock)
	cfgPath := writeTestConfig(t)

	runner := NewAppRunner()
	err := runner.Run([]string{"-config", cfgPath, "-table", "trades", "-d", "20260115", "-p", "regionemea"})
	if !errors.Is(err, ErrUsage) {
		t.Errorf("Run error = %v, want ErrUsage", err)
	}
}

func TestRunMapMode(t *testing.T) {
	mock := &mockProcessor{mapFiles: []*finder.RawFile{{FullPath: "/raw/trades_20260115.csv"}}}
	installMocks(t, mock)
	cfgPath := writeTestConfig(t)

	runner := NewAppRunner()
	err := runner.Run([]string{"-config", cfgPath, "-table", "trades", "-map", "/data/out/trades_20260115.parq"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if mock.mapCalls != 1 {
		t.Fatalf("MapOutput called %d times, want 1", mock.mapCalls)
	}
	if mock.calls != 0 {
		t.Errorf("Process called %d times in map mode, want 0", mock.calls)
	}
	if mock.mapPath != "/data/out/trades_20260115.parq" || mock.table != "trades" {
		t.Errorf("MapOutput got (%q, %q)", mock.mapPath, mock.table)
	}
}

func TestRunMapModeNeedsNoIdentifier(t *testing.T) {
	mock := &mockProcessor{}
	installMocks(t, mock)
	cfgPath := writeTestConfig(t)

	// -d is required for conversion but not for mapping.
	runner := NewAppRunner()
	if err := runner.Run([]string{"-config", cfgPath, "-table", "trades", "-map", "out.parq"}); err != nil {
		t.Errorf("Run returned error: %v", err)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	runner := NewAppRunner()
	if err := runner.Run([]string{"-bogus"}); !errors.Is(err, ErrUsage) {
		t.Errorf("Run error = %v, want ErrUsage", err)
	}
}

func TestRunNoArgsShowsUsage(t *testing.T) {
	mock := &mockProcessor{}
	installMocks(t, mock)

	runner := NewAppRunner()
	if err := runner.Run(nil); err != nil {
		t.Errorf("Run with no args should print usage and return nil, got %v", err)
	}
	if mock.calls != 0 {
		t.Errorf("processor should not run, got %d calls", mock.calls)
	}
}

func TestUsageMentionsFlags(t *testing.T) {
	var buf bytes.Buffer
	NewAppRunner().Usage(&buf)
	for _, flag := range []string{"-config", "-table", "-d", "-p", "-output", "-loglevel"} {
		if !bytes.Contains(buf.Bytes(), []byte(flag)) {
			t.Errorf("usage text should mention %s", flag)
		}
	}
}

func TestParseSearchParams(t *testing.T) {
	got, err := parseSearchParams("a=1, b=two,c=")
	if err != nil {
		t.Fatalf("parseSearchParams returned error: %v", err)
	}
	want := map[string]string{"a": "1", "b": "two", "c": ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseSearchParams = %v, want %v", got, want)
	}

	if _, err := parseSearchParams("novalue"); err == nil {
		t.Error("expected error for entry without '='")
	}
	if _, err := parseSearchParams("=v"); err == nil {
		t.Error("expected error for empty key")
	}
}
