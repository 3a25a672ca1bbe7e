// Package keywords reads the keyword list that drives a generation run.
package keywords

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/querygen/internal/domain"
)

const maxLineSize = 1 << 20

// Read returns the trimmed non-empty lines of path in file order.
// Duplicates are kept. Returns domain.ErrEmptyInput when no keyword remains.
func Read(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open keywords %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		if kw := strings.TrimSpace(line); kw != "" {
			out = append(out, kw)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read keywords %s: %w", path, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", domain.ErrEmptyInput, path)
	}
	return out, nil
}
