package finder

import (
	"fmt"
	"regexp"
	"strings"

	"parqconvert/internal/errs"
)

// ParseOutputPath reverses output-template rendering: given a rendered path
// and the template it was produced from, it recovers the variable values
// the template was filled with. Date placeholders match their fixed digit
// widths; any other placeholder matches a run of path-safe characters. A
// placeholder appearing more than once must hold the same value at every
// occurrence. Missing date composites are derived the same way discovery
// derives them, so a template carrying only {YYYY}/{MM}/{DD} still yields a
// YYYYMMDD identifier.
func ParseOutputPath(path, template string) (map[string]string, error) {
	var names []string
	var pattern strings.Builder
	pattern.WriteString("^")

	last := 0
	for _, loc := range placeholderRegex.FindAllStringSubmatchIndex(template, -1) {
		pattern.WriteString(regexp.QuoteMeta(template[last:loc[0]]))
		name := template[loc[2]:loc[3]]
		if capture, ok := captureRepl[name]; ok {
			pattern.WriteString(capture)
		} else {
			pattern.WriteString(`([^/]+)`)
		}
		names = append(names, name)
		last = loc[1]
	}
	pattern.WriteString(regexp.QuoteMeta(template[last:]))
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil, fmt.Errorf("%w: reversing template '%s': %v", errs.ErrConfig, template, err)
	}
	m := re.FindStringSubmatch(path)
	if m == nil {
		return nil, fmt.Errorf("%w: path '%s' does not match output template '%s'", errs.ErrConfig, path, template)
	}

	vars := make(map[string]string, len(names))
	for i, name := range names {
		value := m[i+1]
		if prev, ok := vars[name]; ok && prev != value {
			return nil, fmt.Errorf("%w: placeholder {%s} holds both '%s' and '%s' in path '%s'",
				errs.ErrConfig, name, prev, value, path)
		}
		vars[name] = value
	}

	parts := make(map[string]string, len(DateKeys))
	for _, key := range DateKeys {
		parts[key] = vars[key]
	}
	deriveDateParts(parts)
	for key, value := range parts {
		if value != "" {
			vars[key] = value
		}
	}
	return vars, nil
}
