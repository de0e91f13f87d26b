// Package finder implements the path-template file-discovery engine. A
// template mixes date/time placeholders ({YYYY}, {YYYYMMDD}, {delta}, ...),
// free-form named placeholders resolved from search parameters, glob
// wildcards, regex capture groups, and an optional "|" separator splitting an
// archive pattern from a member pattern. The finder compiles a template into
// glob and regex forms, enumerates matching files (optionally bounded to a
// date/delta range), and yields one RawFile descriptor per match with
// extracted date components, named variables, and filesystem metadata.
package finder

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/logging"
)

// DateKeys lists every date/time/delta placeholder the template vocabulary
// understands.
var DateKeys = []string{
	"YYYY", "MM", "DD", "YYYYMMDD", "YYYYMM", "YYMMDD", "YYMM", "YY",
	"hh", "mm", "ss", "ms", "us", "delta",
}

// globRepl maps each date placeholder to a fixed-width glob wildcard run.
var globRepl = map[string]string{
	"YYYY": "????", "MM": "??", "DD": "??",
	"YYYYMMDD": "????????", "YYYYMM": "??????", "YYMMDD": "??????",
	"YYMM": "????", "YY": "??",
	"hh": "??", "mm": "??", "ss": "??", "ms": "???", "us": "??????",
	"delta": "*",
}

// regexRepl maps each date placeholder to a fixed-width digit class.
var regexRepl = map[string]string{
	"YYYY": "[0-9]{4}", "MM": "[0-9]{2}", "DD": "[0-9]{2}",
	"YYYYMMDD": "[0-9]{8}", "YYYYMM": "[0-9]{6}", "YYMMDD": "[0-9]{6}",
	"YYMM": "[0-9]{4}", "YY": "[0-9]{2}",
	"hh": "[0-9]{2}", "mm": "[0-9]{2}", "ss": "[0-9]{2}",
	"ms": "[0-9]{3}", "us": "[0-9]{6}",
	"delta": "[0-9]+",
}

// captureRepl maps each date placeholder to a capturing digit class used
// when re-deriving date components from a matched path.
var captureRepl = map[string]string{
	"YYYY": "([0-9]{4})", "MM": "([0-9]{2})", "DD": "([0-9]{2})",
	"YYYYMMDD": "([0-9]{8})", "YYYYMM": "([0-9]{6})", "YYMMDD": "([0-9]{6})",
	"YYMM": "([0-9]{4})", "YY": "([0-9]{2})",
	"hh": "([0-9]{2})", "mm": "([0-9]{2})", "ss": "([0-9]{2})",
	"ms": "([0-9]{3})", "us": "([0-9]{6})",
	"delta": "([0-9]+)",
}

var placeholderRegex = regexp.MustCompile(`\{(\w+)\}`)

// dateTokenRegex finds date placeholders in template order. Longer tokens
// listed first so YYYYMMDD is not consumed as YYYY + MM + DD.
var dateTokenRegex = regexp.MustCompile(`\{(YYYYMMDD|YYYYMM|YYMMDD|YYMM|YYYY|MM|DD|YY|hh|mm|ss|ms|us|delta)\}`)

// FourDigitYear converts a two-digit year using the pinned pivot rule:
// values 70–99 map to 1970–1999, values 00–69 map to 2000–2069. The pivot
// is deliberately explicit rather than inherited from host date parsing.
func FourDigitYear(yy string) string {
	n, err := strconv.Atoi(yy)
	if err != nil {
		return ""
	}
	if n >= 70 {
		return strconv.Itoa(1900 + n)
	}
	return fmt.Sprintf("%04d", 2000+n)
}

// DatePartsFromIdentifier expands a primary identifier into the full
// date-component map, deriving every component the identifier implies.
func DatePartsFromIdentifier(d, fileType string) map[string]string {
	parts := make(map[string]string, len(DateKeys))
	for _, key := range DateKeys {
		parts[key] = ""
	}
	switch fileType {
	case config.FileTypeDate:
		parts["YYYYMMDD"] = d
	case config.FileTypeMonth:
		parts["YYYYMM"] = d
	case config.FileTypeDelta:
		parts["delta"] = d
	}
	deriveDateParts(parts)
	return parts
}

// FileMeta holds filesystem metadata for a discovered file. For archive
// members both member-level and archive-level fields are populated.
type FileMeta struct {
	Path  string
	Name  string
	Mtime time.Time
	Size  int64

	// Archive-level fields, zero for regular files.
	ArchiveName          string
	ArchiveMtime         time.Time
	ArchiveSize          int64
	MemberCompressedSize int64
}

// Value looks up a metadata field by its configuration name (the
// "metadata.<field>" source of additional metadata columns).
func (m FileMeta) Value(key string) (interface{}, bool) {
	switch key {
	case "file_path":
		return m.Path, true
	case "file_name":
		return m.Name, true
	case "file_mtime":
		return m.Mtime, true
	case "file_size":
		return m.Size, true
	case "archive_name":
		return m.ArchiveName, true
	case "archive_mtime":
		return m.ArchiveMtime, true
	case "archive_size":
		return m.ArchiveSize, true
	case "member_compressed_size":
		return m.MemberCompressedSize, true
	default:
		return nil, false
	}
}

// RawFile describes one discovered raw file: its path, the date components
// and named variables extracted from the path, filesystem metadata, and the
// primary date/delta identifier used for range filtering. Created once per
// matched path per discovery call and immutable thereafter.
type RawFile struct {
	// FullPath is the complete path; "archive|member" for archive members.
	FullPath string
	// FullName is the last path component of FullPath.
	FullName string
	// IsArchive reports whether this file lives inside a zip archive.
	IsArchive bool
	// FileName is the plain file name (the archive's name for members).
	FileName string
	// MemberName is the name inside the archive; empty for regular files.
	MemberName string
	// ExtractVars holds variables captured from the path, cast per config,
	// merged with the search parameters.
	ExtractVars map[string]interface{}
	// DateParts maps every date key to its (possibly derived) string value;
	// an empty string means the component could not be determined.
	DateParts map[string]string
	// Meta is the filesystem metadata captured at discovery time.
	Meta FileMeta
	// FileType is the discovery period kind (date, month, delta).
	FileType string
	// CreationTime is the UTC instant this descriptor was created.
	CreationTime time.Time
	// D is the primary date/delta identifier (YYYYMMDD, YYYYMM, or delta).
	D string
}

// Stem returns the source file's base name without a trailing .gz and
// without its final extension, the {file_name} value in per-file mode.
func (r *RawFile) Stem() string {
	name := r.FileName
	if r.IsArchive {
		name = r.MemberName
	}
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Options parameterize a Finder beyond its template.
type Options struct {
	// SearchParams resolve free-form named placeholders to exact values.
	SearchParams map[string]string
	// ExtractVars declare variables captured from the path's regex groups.
	ExtractVars map[string]config.ExtractVarConfig
	// After/Before optionally bound the primary identifier, inclusive on
	// both ends. Empty means unbounded.
	After  string
	Before string
	// FileType selects the discovery period: date, month, or delta.
	FileType string
}

// Finder compiles one path template and discovers the files matching it.
type Finder struct {
	template     string
	opts         Options
	isArchive    bool
	globTemplate string

	// Regex forms of the archive (or plain) pattern and, for archives, the
	// member pattern. Capture groups from the template are preserved so
	// extract variables can be pulled out positionally.
	pathRegex   *regexp.Regexp
	memberRegex *regexp.Regexp
}

// NewFinder compiles a template into its glob and regex forms. A named
// placeholder present in the template but absent from both the search
// parameters and the date/delta vocabulary is an ErrConfig error, raised
// before any filesystem access.
func NewFinder(fileTemplate string, opts Options) (*Finder, error) {
	if opts.FileType == "" {
		opts.FileType = config.FileTypeDate
	}

	f := &Finder{
		template:  fileTemplate,
		opts:      opts,
		isArchive: strings.Contains(fileTemplate, "|"),
	}

	if err := f.validatePlaceholders(); err != nil {
		return nil, err
	}

	f.globTemplate = f.templateToGlob()
	if err := f.compileRegexes(); err != nil {
		return nil, err
	}
	return f, nil
}

// String renders the compiled finder for debug logging.
func (f *Finder) String() string {
	member := "<none>"
	if f.memberRegex != nil {
		member = f.memberRegex.String()
	}
	return fmt.Sprintf("Finder{template: %q, glob: %q, regex: %q, memberRegex: %q, fileType: %s, archive: %t, after: %q, before: %q}",
		f.template, f.globTemplate, f.pathRegex.String(), member, f.opts.FileType, f.isArchive, f.opts.After, f.opts.Before)
}

// validatePlaceholders fails fast when the template references a named
// placeholder that neither the search parameters nor the builtin date/delta
// vocabulary can resolve.
func (f *Finder) validatePlaceholders() error {
	builtin := make(map[string]bool, len(DateKeys))
	for _, k := range DateKeys {
		builtin[k] = true
	}

	var missing []string
	for _, m := range placeholderRegex.FindAllStringSubmatch(f.template, -1) {
		key := m[1]
		if builtin[key] {
			continue
		}
		if _, ok := f.opts.SearchParams[key]; ok {
			continue
		}
		missing = append(missing, key)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: template '%s' references unresolved placeholders %v (supply them as search params)",
			errs.ErrConfig, f.template, missing)
	}
	return nil
}

// substitute replaces every {key} placeholder using the supplied lookup.
func substitute(s string, lookup func(key string) string) string {
	return placeholderRegex.ReplaceAllStringFunc(s, func(match string) string {
		return lookup(match[1 : len(match)-1])
	})
}

// templateToGlob compiles the archive (or plain) portion of the template
// into a glob: date placeholders become fixed-width wildcard runs, named
// placeholders become '*', and capture-group parentheses are stripped.
func (f *Finder) templateToGlob() string {
	pattern, _, _ := strings.Cut(f.template, "|")
	pattern = strings.ReplaceAll(pattern, "(", "")
	pattern = strings.ReplaceAll(pattern, ")", "")
	return substitute(pattern, func(key string) string {
		if repl, ok := globRepl[key]; ok {
			return repl
		}
		return "*"
	})
}

// toRegexForm converts one template segment into a regex string: glob
// wildcards become regex equivalents, date placeholders become fixed-width
// digit classes, named placeholders match lazily as '.*'. Capture-group
// parentheses from the template survive.
func (f *Finder) toRegexForm(segment string) string {
	s := strings.ReplaceAll(segment, ".", `\.`)
	s = strings.ReplaceAll(s, "*", ".*")
	s = strings.ReplaceAll(s, "?", ".")
	return substitute(s, func(key string) string {
		if repl, ok := regexRepl[key]; ok {
			return repl
		}
		return ".*"
	})
}

// compileRegexes builds the path regex and, for archive templates, the
// member regex. The archive regex excludes the member segment.
func (f *Finder) compileRegexes() error {
	outer, inner, _ := strings.Cut(f.template, "|")

	pathRegex, err := regexp.Compile(f.toRegexForm(outer))
	if err != nil {
		return fmt.Errorf("%w: template '%s' compiles to an invalid regex: %v", errs.ErrConfig, f.template, err)
	}
	f.pathRegex = pathRegex

	if f.isArchive {
		memberRegex, err := regexp.Compile(f.toRegexForm(inner))
		if err != nil {
			return fmt.Errorf("%w: member pattern of template '%s' compiles to an invalid regex: %v", errs.ErrConfig, f.template, err)
		}
		f.memberRegex = memberRegex
	}
	return nil
}

// FindAll discovers every file matching the template. With both range
// endpoints configured it delegates to FindRange, which scans only the
// requested periods instead of globbing the whole tree.
func (f *Finder) FindAll() ([]*RawFile, error) {
	if f.opts.After != "" && f.opts.Before != "" {
		return f.FindRange(f.opts.After, f.opts.Before)
	}

	paths, err := filepath.Glob(f.globTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: globbing '%s': %v", errs.ErrDiscovery, f.globTemplate, err)
	}
	return f.processPaths(paths)
}

// FindRange discovers files whose primary identifier falls within the closed
// range [after, before]. One concrete glob is materialized per period (day,
// calendar month, or delta increment) with exact date substitutions, which
// bounds filesystem scanning to the requested range.
func (f *Finder) FindRange(after, before string) ([]*RawFile, error) {
	pattern, _, _ := strings.Cut(f.template, "|")
	pattern = strings.ReplaceAll(pattern, "(", "")
	pattern = strings.ReplaceAll(pattern, ")", "")

	var found []*RawFile
	var discoveryErrs []error

	runPeriod := func(lookup func(key string) string) error {
		glob := substitute(pattern, lookup)
		paths, err := filepath.Glob(glob)
		if err != nil {
			return fmt.Errorf("%w: globbing '%s': %v", errs.ErrDiscovery, glob, err)
		}
		files, err := f.processPaths(paths)
		if err != nil {
			discoveryErrs = append(discoveryErrs, err)
		}
		found = append(found, files...)
		return nil
	}

	switch f.opts.FileType {
	case config.FileTypeDate, config.FileTypeMonth:
		layout := "20060102"
		afterStr, beforeStr := after, before
		if f.opts.FileType == config.FileTypeMonth {
			afterStr += "01"
			beforeStr += "01"
		}
		start, err := time.Parse(layout, afterStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid range start '%s': %v", errs.ErrConfig, after, err)
		}
		end, err := time.Parse(layout, beforeStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid range end '%s': %v", errs.ErrConfig, before, err)
		}

		for current := start; !current.After(end); {
			if err := runPeriod(func(key string) string { return f.periodValue(key, current) }); err != nil {
				return nil, err
			}
			if f.opts.FileType == config.FileTypeDate {
				current = current.AddDate(0, 0, 1)
			} else {
				current = current.AddDate(0, 1, 0)
			}
		}

	case config.FileTypeDelta:
		start, err := strconv.Atoi(after)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid delta range start '%s': %v", errs.ErrConfig, after, err)
		}
		end, err := strconv.Atoi(before)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid delta range end '%s': %v", errs.ErrConfig, before, err)
		}
		for d := start; d <= end; d++ {
			delta := strconv.Itoa(d)
			if err := runPeriod(func(key string) string {
				if key == "delta" {
					return delta
				}
				if repl, ok := globRepl[key]; ok {
					return repl
				}
				if v, ok := f.opts.SearchParams[key]; ok {
					return v
				}
				return "*"
			}); err != nil {
				return nil, err
			}
		}

	default:
		return nil, fmt.Errorf("%w: unknown file type '%s'", errs.ErrConfig, f.opts.FileType)
	}

	return found, errors.Join(discoveryErrs...)
}

// periodValue substitutes exact values for date placeholders at one period
// and wildcards for everything else.
func (f *Finder) periodValue(key string, current time.Time) string {
	switch key {
	case "YYYY":
		return current.Format("2006")
	case "MM":
		return current.Format("01")
	case "DD":
		return current.Format("02")
	case "YYYYMMDD":
		return current.Format("20060102")
	case "YYYYMM":
		return current.Format("200601")
	case "YYMMDD":
		return current.Format("060102")
	case "YYMM":
		return current.Format("0601")
	case "YY":
		return current.Format("06")
	}
	if repl, ok := globRepl[key]; ok {
		return repl
	}
	if v, ok := f.opts.SearchParams[key]; ok {
		return v
	}
	return "*"
}

// processPaths turns discovered paths into descriptors. Archive templates
// expand each archive into its matching members; an unreadable archive
// contributes an ErrDiscovery for that archive only, and the remaining
// archives are still processed.
func (f *Finder) processPaths(paths []string) ([]*RawFile, error) {
	creationTime := time.Now().UTC()
	var found []*RawFile
	var archiveErrs []error

	for _, path := range paths {
		if f.isArchive {
			members, err := listArchiveMembers(path)
			if err != nil {
				archiveErrs = append(archiveErrs, fmt.Errorf("%w: reading archive '%s': %v", errs.ErrDiscovery, path, err))
				continue
			}
			for _, member := range members {
				if !f.memberRegex.MatchString(member) {
					continue
				}
				if raw := f.processSingle(path+"|"+member, creationTime); raw != nil {
					found = append(found, raw)
				}
			}
		} else {
			if raw := f.processSingle(path, creationTime); raw != nil {
				found = append(found, raw)
			}
		}
	}

	return found, errors.Join(archiveErrs...)
}

// processSingle builds one descriptor, or nil when the primary identifier
// falls outside the configured inclusive range.
func (f *Finder) processSingle(path string, creationTime time.Time) *RawFile {
	dateParts := f.extractDateParts(path)
	extractVars := f.extractVariables(path)
	meta, err := f.extractMeta(path)
	if err != nil {
		logging.Logf(logging.Warning, "Skipping '%s': %v", path, err)
		return nil
	}

	var d string
	switch f.opts.FileType {
	case config.FileTypeDate:
		d = dateParts["YYYYMMDD"]
	case config.FileTypeMonth:
		d = dateParts["YYYYMM"]
	case config.FileTypeDelta:
		d = dateParts["delta"]
	}

	for key, value := range f.opts.SearchParams {
		extractVars[key] = value
	}

	// Closed-range filter: both endpoints inclusive.
	if d != "" {
		if n, err := strconv.Atoi(d); err == nil {
			if f.opts.Before != "" {
				if bound, err := strconv.Atoi(f.opts.Before); err == nil && n > bound {
					return nil
				}
			}
			if f.opts.After != "" {
				if bound, err := strconv.Atoi(f.opts.After); err == nil && n < bound {
					return nil
				}
			}
		}
	}

	fullName := path[strings.LastIndex(path, "/")+1:]
	raw := &RawFile{
		FullPath:     path,
		FullName:     fullName,
		IsArchive:    f.isArchive,
		FileName:     fullName,
		ExtractVars:  extractVars,
		DateParts:    dateParts,
		Meta:         meta,
		FileType:     f.opts.FileType,
		CreationTime: creationTime,
		D:            d,
	}
	if f.isArchive {
		raw.FileName, raw.MemberName, _ = strings.Cut(fullName, "|")
	}
	return raw
}

// extractDateParts re-derives every date-component key from a concrete path
// by matching it against a capture form of the template, then filling in
// composites from parts and parts from composites. A path that does not
// match yields a map with every key unset, a valid "no metadata" result,
// not an error.
func (f *Finder) extractDateParts(path string) map[string]string {
	result := make(map[string]string, len(DateKeys))
	for _, key := range DateKeys {
		result[key] = ""
	}

	// Build a regex whose only capture groups are the date tokens: strip the
	// template's own groups, escape separators, convert glob wildcards, and
	// substitute search params with their exact values.
	pattern := strings.ReplaceAll(f.template, "(", "")
	pattern = strings.ReplaceAll(pattern, ")", "")
	pattern = strings.ReplaceAll(pattern, "|", `\|`)
	pattern = strings.ReplaceAll(pattern, ".", `\.`)
	pattern = strings.ReplaceAll(pattern, "*", ".*")
	pattern = strings.ReplaceAll(pattern, "?", ".")
	for key, value := range f.opts.SearchParams {
		pattern = strings.ReplaceAll(pattern, "{"+key+"}", regexp.QuoteMeta(value))
	}

	tokens := dateTokenRegex.FindAllStringSubmatch(pattern, -1)
	order := make([]string, len(tokens))
	for i, m := range tokens {
		order[i] = m[1]
	}
	pattern = dateTokenRegex.ReplaceAllStringFunc(pattern, func(match string) string {
		return captureRepl[match[2:len(match)-1]]
	})

	re, err := regexp.Compile(pattern)
	if err != nil {
		return result
	}
	match := re.FindStringSubmatch(path)
	if match == nil {
		return result
	}
	for i, token := range order {
		if i+1 < len(match) {
			result[token] = match[i+1]
		}
	}

	deriveDateParts(result)
	return result
}

// deriveDateParts makes the date-component map self-consistent: composite
// keys are sliced into parts, parts are joined into composites, and the
// two-digit/four-digit year pair is completed via the pinned pivot rule.
func deriveDateParts(p map[string]string) {
	if v := p["YYYYMMDD"]; len(v) == 8 && (p["YYYY"] == "" || p["MM"] == "" || p["DD"] == "") {
		p["YYYY"], p["MM"], p["DD"] = v[0:4], v[4:6], v[6:8]
	}
	if v := p["YYYYMM"]; len(v) == 6 && (p["YYYY"] == "" || p["MM"] == "") {
		p["YYYY"], p["MM"] = v[0:4], v[4:6]
	}
	if v := p["YYMMDD"]; len(v) == 6 && (p["YY"] == "" || p["MM"] == "" || p["DD"] == "") {
		p["YY"], p["MM"], p["DD"] = v[0:2], v[2:4], v[4:6]
	}
	if v := p["YYMM"]; len(v) == 4 && (p["YY"] == "" || p["MM"] == "") {
		p["YY"], p["MM"] = v[0:2], v[2:4]
	}

	if p["YY"] != "" && p["YYYY"] == "" {
		p["YYYY"] = FourDigitYear(p["YY"])
	}
	if len(p["YYYY"]) == 4 && p["YY"] == "" {
		p["YY"] = p["YYYY"][2:4]
	}

	if p["YYYY"] != "" && p["MM"] != "" && p["DD"] != "" && p["YYYYMMDD"] == "" {
		p["YYYYMMDD"] = p["YYYY"] + p["MM"] + p["DD"]
	}
	if p["YYYY"] != "" && p["MM"] != "" && p["YYYYMM"] == "" {
		p["YYYYMM"] = p["YYYY"] + p["MM"]
	}
	if p["YY"] != "" && p["MM"] != "" && p["DD"] != "" && p["YYMMDD"] == "" {
		p["YYMMDD"] = p["YY"] + p["MM"] + p["DD"]
	}
	if p["YY"] != "" && p["MM"] != "" && p["YYMM"] == "" {
		p["YYMM"] = p["YY"] + p["MM"]
	}
}

// extractVariables pulls the declared extract variables out of a path by
// matching the compiled regex (archive and member forms joined for archive
// templates) and mapping 1-based capture groups to their casts. A non-match
// yields an empty map.
func (f *Finder) extractVariables(path string) map[string]interface{} {
	result := make(map[string]interface{}, len(f.opts.ExtractVars))
	if len(f.opts.ExtractVars) == 0 {
		return result
	}

	re := f.pathRegex
	if f.isArchive {
		combined, err := regexp.Compile(f.pathRegex.String() + `\|` + f.memberRegex.String())
		if err != nil {
			return result
		}
		re = combined
	}

	match := re.FindStringSubmatch(path)
	if match == nil {
		return result
	}
	groups := match[1:]

	for name, varCfg := range f.opts.ExtractVars {
		if varCfg.RegexGroup < 1 || varCfg.RegexGroup > len(groups) {
			result[name] = nil
			continue
		}
		raw := groups[varCfg.RegexGroup-1]
		switch varCfg.Type {
		case config.ExtractVarTypeInt:
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				result[name] = n
			} else {
				result[name] = nil
			}
		case config.ExtractVarTypeFloat:
			if x, err := strconv.ParseFloat(raw, 64); err == nil {
				result[name] = x
			} else {
				result[name] = nil
			}
		default:
			result[name] = raw
		}
	}
	return result
}

// extractMeta captures filesystem metadata. Archive members report both
// member-level fields (from the zip directory) and archive-level fields.
// Member modification times come from the zip entry and are naive; they are
// reported as UTC.
func (f *Finder) extractMeta(path string) (FileMeta, error) {
	if !f.isArchive {
		info, err := os.Stat(path)
		if err != nil {
			return FileMeta{}, err
		}
		return FileMeta{
			Path:  path,
			Name:  filepath.Base(path),
			Mtime: info.ModTime().UTC(),
			Size:  info.Size(),
		}, nil
	}

	archivePath, memberName, _ := strings.Cut(path, "|")
	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return FileMeta{}, err
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return FileMeta{}, err
	}
	defer reader.Close()

	for _, member := range reader.File {
		if member.Name != memberName {
			continue
		}
		return FileMeta{
			Path:                 path,
			Name:                 memberName,
			Mtime:                member.Modified.UTC(),
			Size:                 int64(member.UncompressedSize64),
			ArchiveName:          filepath.Base(archivePath),
			ArchiveMtime:         archiveInfo.ModTime().UTC(),
			ArchiveSize:          archiveInfo.Size(),
			MemberCompressedSize: int64(member.CompressedSize64),
		}, nil
	}
	return FileMeta{}, fmt.Errorf("member '%s' not found in archive '%s'", memberName, archivePath)
}

// listArchiveMembers returns the names of all files inside a zip archive.
func listArchiveMembers(archivePath string) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	names := make([]string, 0, len(reader.File))
	for _, member := range reader.File {
		names = append(names, member.Name)
	}
	return names, nil
}
