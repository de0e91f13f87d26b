package util

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// ExpandEnvUniversal expands environment variables ($VAR, ${VAR}, %VAR%).
// It handles both Unix-style ($VAR, ${VAR}) and Windows-style (%VAR%) variables.
// Variables that are not found are replaced with an empty string.
func ExpandEnvUniversal(s string) string {
	// Expand Unix-style variables first using os.ExpandEnv.
	unixExpanded := os.ExpandEnv(s)

	// Compile a regular expression to find Windows-style variables (%VAR%).
	// The regex captures the variable name inside the percentage signs.
	re := regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

	// Replace Windows-style variables found in the string.
	winExpanded := re.ReplaceAllStringFunc(unixExpanded, func(match string) string {
		varName := match[1 : len(match)-1]
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		// Mimic os.ExpandEnv's behavior for unknown variables.
		return ""
	})
	return winExpanded
}

// CreateDir ensures a directory exists, creating parents as needed.
func CreateDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// FormatElapsed renders a duration as "1h 30m 45.123s", dropping leading
// zero components.
func FormatElapsed(d time.Duration) string {
	var parts []string
	if h := int(d.Hours()); h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
		d -= time.Duration(h) * time.Hour
	}
	if m := int(d.Minutes()); m > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
		d -= time.Duration(m) * time.Minute
	}
	parts = append(parts, fmt.Sprintf("%.3fs", d.Seconds()))
	return strings.Join(parts, " ")
}

// MD5File computes the hex MD5 digest of a file's contents.
func MD5File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// WriteMD5Sidecar writes "<digest>  <basename>\n" next to the file at
// path, in the conventional md5sum format.
func WriteMD5Sidecar(path, digest string) error {
	base := path[strings.LastIndex(path, "/")+1:]
	content := fmt.Sprintf("%s  %s\n", digest, base)
	return os.WriteFile(path+".md5", []byte(content), 0o644)
}

// Compression magic bytes.
var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte{0x42, 0x5a, 0x68}
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// OpenDecompressed wraps a reader with the decompressor its leading magic
// bytes call for. Unrecognized content passes through untouched. The
// returned reader is buffered either way.
func OpenDecompressed(r io.Reader) (io.Reader, error) {
	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(6)
	if err != nil && err != io.EOF {
		return nil, err
	}

	switch {
	case len(head) >= 2 && head[0] == gzipMagic[0] && head[1] == gzipMagic[1]:
		return gzip.NewReader(buffered)
	case len(head) >= 3 && head[0] == bzip2Magic[0] && head[1] == bzip2Magic[1] && head[2] == bzip2Magic[2]:
		return bzip2.NewReader(buffered), nil
	case len(head) >= 6 && string(head[:6]) == string(xzMagic):
		return xz.NewReader(buffered)
	}
	return buffered, nil
}
