package adjuster

import (
	"bufio"
	"fmt"
	"regexp"
	"time"

	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/finder"
	pcio "parqconvert/internal/io"
	"parqconvert/internal/logging"
	"parqconvert/internal/util"
)

// headerTimestampLayouts are the layouts tried for timestamps captured from
// a header line. Zoneless layouts are interpreted in the configured
// timezone.
var headerTimestampLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{time.RFC3339, true},
	{"2006-01-02 15:04:05.999999999", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02T15:04:05", false},
	{"20060102 15:04:05", false},
	{"20060102150405", false},
	{"2006-01-02", false},
	{"20060102", false},
}

// HeaderTime derives knowledge time from a timestamp embedded in the
// source file's header: the configured 1-based header line is matched
// against a regex whose first capture group holds the timestamp. Parsed
// times are cached per path; the cache is not safe for concurrent use,
// matching the single-goroutine conversion loop.
type HeaderTime struct {
	*Standard
	line    int
	pattern *regexp.Regexp
	cache   map[string]time.Time
}

// NewHeaderTime compiles the header pattern and wraps a standard adjuster
// with header-derived knowledge time.
func NewHeaderTime(md config.MetadataConfig) (*HeaderTime, error) {
	std, err := NewStandard(md)
	if err != nil {
		return nil, err
	}
	if md.KnowledgeTime == nil || md.KnowledgeTime.HeaderPattern == "" {
		return nil, fmt.Errorf("%w: the header_time adjuster requires metadata.knowledgeTime.headerPattern", errs.ErrConfig)
	}
	pattern, err := regexp.Compile(md.KnowledgeTime.HeaderPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid headerPattern '%s': %v", errs.ErrConfig, md.KnowledgeTime.HeaderPattern, err)
	}
	if pattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: headerPattern '%s' has no capture group for the timestamp", errs.ErrConfig, md.KnowledgeTime.HeaderPattern)
	}

	line := config.DefaultHeaderLine
	if md.KnowledgeTime.HeaderLine > 0 {
		line = md.KnowledgeTime.HeaderLine
	}

	h := &HeaderTime{Standard: std, line: line, pattern: pattern, cache: make(map[string]time.Time)}
	std.knowledgeTime = h.headerKnowledgeTime
	return h, nil
}

// headerKnowledgeTime reads and parses the header timestamp, consulting the
// per-path cache first so a file streamed as many batches is only reopened
// once.
func (h *HeaderTime) headerKnowledgeTime(raw *finder.RawFile) (time.Time, error) {
	if t, ok := h.cache[raw.FullPath]; ok {
		return t, nil
	}
	t, err := h.readHeaderTime(raw)
	if err != nil {
		return time.Time{}, err
	}
	h.cache[raw.FullPath] = t
	logging.Logf(logging.Debug, "Header knowledge time for %s: %s", raw.FullPath, t)
	return t, nil
}

func (h *HeaderTime) readHeaderTime(raw *finder.RawFile) (time.Time, error) {
	handle, err := pcio.OpenSource(raw.FullPath, raw.IsArchive)
	if err != nil {
		return time.Time{}, err
	}
	defer handle.Close()

	stream, err := util.OpenDecompressed(handle.Stream)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: decompressing '%s': %v", errs.ErrStream, raw.FullPath, err)
	}

	scanner := bufio.NewScanner(stream)
	var headerLine string
	for i := 0; i < h.line; i++ {
		if !scanner.Scan() {
			return time.Time{}, fmt.Errorf("%w: '%s' ended before header line %d", errs.ErrStream, raw.FullPath, h.line)
		}
		headerLine = scanner.Text()
	}

	match := h.pattern.FindStringSubmatch(headerLine)
	if match == nil || match[1] == "" {
		return time.Time{}, fmt.Errorf("%w: header line %d of '%s' does not match the configured pattern", errs.ErrStream, h.line, raw.FullPath)
	}
	return h.parseHeaderTimestamp(match[1], raw.FullPath)
}

func (h *HeaderTime) parseHeaderTimestamp(text, path string) (time.Time, error) {
	for _, candidate := range headerTimestampLayouts {
		if candidate.zoned {
			if t, err := time.Parse(candidate.layout, text); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(candidate.layout, text, h.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse header timestamp '%s' in '%s'", errs.ErrStream, text, path)
}

// New creates the adjuster backend named by the output configuration.
func New(kind string, md config.MetadataConfig) (Adjuster, error) {
	switch kind {
	case config.AdjusterTypeStandard, "":
		return NewStandard(md)
	case config.AdjusterTypeHeaderTime:
		return NewHeaderTime(md)
	default:
		return nil, fmt.Errorf("%w: unsupported adjuster type '%s'", errs.ErrConfig, kind)
	}
}
