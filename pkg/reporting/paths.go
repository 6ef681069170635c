package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultOutputDir returns the conventional output directory for a symbol's
// reports, e.g. results/BTCUSDT
func DefaultOutputDir(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		s = "UNKNOWN"
	}
	return filepath.Join("results", s)
}

// TimestampedPath joins the output directory with a name and extension,
// e.g. results/BTCUSDT/activity_20060102.xlsx
func TimestampedPath(dir, name, date, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", name, date, ext))
}

// EnsureDirectoryExists creates the parent directory of path if needed
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
