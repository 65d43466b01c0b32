// Package input resolves command arguments that use - (stdin) or @file syntax.
package input

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// maxValueBytes caps how much a single cell value read from stdin or a file
// may contain.
const maxValueBytes = 64 << 10

// ExpandValue returns arg unchanged unless it is "-" (read stdin) or "@path"
// (read the file). Trailing newlines are stripped from read content.
func ExpandValue(arg string, stdin io.Reader) (string, error) {
	switch {
	case arg == "-":
		return readAll(stdin, "stdin")
	case strings.HasPrefix(arg, "@") && len(arg) > 1:
		path := arg[1:]
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		defer f.Close()
		return readAll(f, path)
	default:
		return arg, nil
	}
}

func readAll(r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxValueBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxValueBytes {
		return "", fmt.Errorf("read %s: value exceeds %d bytes", name, maxValueBytes)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
