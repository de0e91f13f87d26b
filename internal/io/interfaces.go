// Package io provides the reader and writer backends that move record
// batches between raw source files and committed output files. Readers
// stream batches sized by the configured row count; the writer commits
// atomically by writing to a temporary path, renaming on Close, and leaving
// an md5 sidecar beside the final file.
package io

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	stdio "io"
	"os"
	"strings"

	"parqconvert/internal/batch"
	"parqconvert/internal/errs"
	"parqconvert/internal/schema"
)

// BatchIterator streams batches from one opened source. Next returns io.EOF
// once the source is exhausted. Close releases the iterator's resources; it
// does not close the Handle.
type BatchIterator interface {
	Next(ctx context.Context) (*batch.Batch, error)
	Close() error
}

// InputReader opens raw source files and streams typed batches out of them.
type InputReader interface {
	// Open prepares one source for reading. A path containing the "|"
	// separator names a member inside a zip archive.
	Open(path string, isArchive bool) (*Handle, error)

	// Read starts streaming batches. Columns present in readSchema are
	// parsed to their declared types; other source columns come through as
	// strings.
	Read(ctx context.Context, h *Handle, readSchema schema.RecordSchema) (BatchIterator, error)

	// Sample returns the column names of the source, used for reconciling
	// the declared schema against what the file actually carries. Sampling
	// may consume the handle's stream; open a fresh handle before Read.
	Sample(h *Handle) ([]string, error)
}

// OutputWriter receives batches for one output file. Write order is
// preserved. Close commits the file; a writer whose Close was never reached
// leaves only its temporary file behind.
type OutputWriter interface {
	Write(ctx context.Context, b *batch.Batch) error
	Close() error
}

// Handle is one opened source. It owns any underlying file handles, zip
// readers, and scratch files, all released by Close.
type Handle struct {
	// Path is the logical source path, including the "|member" suffix for
	// archive members.
	Path string
	// LocalPath is a concrete on-disk path for backends that need random
	// access; empty when only Stream is available.
	LocalPath string
	// Stream is the raw byte stream of the source.
	Stream stdio.Reader

	closers []stdio.Closer
	scratch string
}

// Close releases everything the handle owns. Safe to call once.
func (h *Handle) Close() error {
	var errList []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			errList = append(errList, err)
		}
	}
	h.closers = nil
	if h.scratch != "" {
		if err := os.RemoveAll(h.scratch); err != nil {
			errList = append(errList, err)
		}
		h.scratch = ""
	}
	return errors.Join(errList...)
}

// OpenSource opens a plain file or an archive member as a byte stream.
func OpenSource(path string, isArchive bool) (*Handle, error) {
	if !isArchive {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: opening '%s': %v", errs.ErrStream, path, err)
		}
		return &Handle{Path: path, LocalPath: path, Stream: f, closers: []stdio.Closer{f}}, nil
	}

	archivePath, memberName, ok := strings.Cut(path, "|")
	if !ok {
		return nil, fmt.Errorf("%w: archive path '%s' has no member separator", errs.ErrStream, path)
	}
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive '%s': %v", errs.ErrStream, archivePath, err)
	}
	for _, member := range zr.File {
		if member.Name != memberName {
			continue
		}
		rc, err := member.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("%w: opening member '%s' in '%s': %v", errs.ErrStream, memberName, archivePath, err)
		}
		return &Handle{Path: path, Stream: rc, closers: []stdio.Closer{zr, rc}}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("%w: member '%s' not found in archive '%s'", errs.ErrStream, memberName, archivePath)
}

// materialize ensures the handle has a concrete on-disk path, extracting the
// stream into a scratch file when necessary. Backends needing random access
// (parquet) call this.
func (h *Handle) materialize() (string, error) {
	if h.LocalPath != "" {
		return h.LocalPath, nil
	}
	dir, err := os.MkdirTemp("", "parqconvert-scratch-")
	if err != nil {
		return "", fmt.Errorf("%w: creating scratch dir: %v", errs.ErrStream, err)
	}
	h.scratch = dir

	local := dir + "/extracted"
	out, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("%w: creating scratch file: %v", errs.ErrStream, err)
	}
	if _, err := stdio.Copy(out, h.Stream); err != nil {
		out.Close()
		return "", fmt.Errorf("%w: extracting '%s': %v", errs.ErrStream, h.Path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("%w: extracting '%s': %v", errs.ErrStream, h.Path, err)
	}
	h.LocalPath = local
	return local, nil
}
