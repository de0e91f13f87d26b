// Package errs defines the error categories shared across the conversion
// pipeline. Callers wrap these sentinels with fmt.Errorf("...: %w", ...) so
// that errors.Is can classify a failure without parsing message text.
package errs

import "errors"

var (
	// ErrConfig marks configuration problems: unresolvable template
	// placeholders, unknown type tokens, malformed manifests, unknown
	// registry keys. Raised before any data I/O takes place.
	ErrConfig = errors.New("configuration error")

	// ErrSchemaValidation marks a declared schema that cannot be satisfied
	// by a source file. Fatal for the output unit; raised before a writer
	// is opened. The message lists every missing required column.
	ErrSchemaValidation = errors.New("schema validation error")

	// ErrDiscovery marks an unreadable archive during file discovery.
	// Scoped to one archive; sibling discoveries continue.
	ErrDiscovery = errors.New("discovery error")

	// ErrStream marks a reader/adjuster/writer failure mid-batch. The
	// current output unit is aborted after file resources are released.
	ErrStream = errors.New("stream error")

	// ErrCommit marks a failed final rename of the temporary output file.
	// The temporary file is left in place for inspection.
	ErrCommit = errors.New("commit error")
)
