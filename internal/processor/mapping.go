package processor

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"parqconvert/internal/config"
	"parqconvert/internal/errs"
	"parqconvert/internal/finder"
	"parqconvert/internal/logging"
	"parqconvert/internal/util"
)

// MapOutput maps a committed output file back to the raw file(s) that
// produced it. The output template is reverse-parsed to recover the
// identifier and the variables the path was rendered with, then discovery
// reruns over the table's raw-file templates for exactly that identifier.
// searchParams supplement the recovered variables for placeholders the
// output path alone cannot resolve.
func (p *Processor) MapOutput(outputPath, tableName string, searchParams map[string]string) ([]*finder.RawFile, error) {
	table, err := p.cfg.GetTableConfig(tableName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}

	template := p.cfg.Output.FileTemplate
	if table.OutputFileTemplate != "" {
		template = table.OutputFileTemplate
	}

	// Match against the path relative to the base directory, falling back
	// to the path as given for absolute templates.
	path := outputPath
	if basedir := util.ExpandEnvUniversal(p.cfg.Output.Basedir); basedir != "" {
		if rel, err := filepath.Rel(basedir, outputPath); err == nil && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}

	vars, err := finder.ParseOutputPath(path, template)
	if err != nil {
		return nil, err
	}
	vars["table"] = tableName
	for key, value := range searchParams {
		vars[key] = value
	}

	var d string
	switch p.cfg.Input.FileType {
	case config.FileTypeMonth:
		d = vars["YYYYMM"]
	case config.FileTypeDelta:
		d = vars["delta"]
	default:
		d = vars["YYYYMMDD"]
	}
	if d == "" {
		return nil, fmt.Errorf("%w: output path '%s' carries no %s identifier", errs.ErrConfig, outputPath, p.cfg.Input.FileType)
	}
	logging.Logf(logging.Debug, "Mapping %s back to raw files for identifier %s", outputPath, d)

	// Date components are the finder's own substitution vocabulary;
	// everything else passes through as search parameters.
	dateKey := make(map[string]bool, len(finder.DateKeys))
	for _, key := range finder.DateKeys {
		dateKey[key] = true
	}
	params := make(map[string]string, len(vars))
	for key, value := range vars {
		if !dateKey[key] {
			params[key] = value
		}
	}

	var files []*finder.RawFile
	var mappingErrs []string
	for _, tmpl := range table.RawFiles {
		f, err := finder.NewFinder(util.ExpandEnvUniversal(tmpl), finder.Options{
			SearchParams: params,
			ExtractVars:  p.cfg.ExtractVars,
			FileType:     p.cfg.Input.FileType,
		})
		if err != nil {
			return nil, err
		}
		found, err := f.FindRange(d, d)
		if err != nil {
			mappingErrs = append(mappingErrs, err.Error())
		}
		files = append(files, found...)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].D != files[j].D {
			return files[i].D < files[j].D
		}
		return files[i].FullPath < files[j].FullPath
	})

	if len(mappingErrs) > 0 {
		return files, fmt.Errorf("%w: %s", errs.ErrDiscovery, strings.Join(mappingErrs, "; "))
	}
	return files, nil
}
