package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/quantpulse/trading-core/internal/risk"
)

// JSONFormatter renders risk summaries as JSON
type JSONFormatter struct {
	out io.Writer
}

// NewJSONFormatter creates a formatter printing to stdout
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{out: os.Stdout}
}

// NewJSONFormatterTo creates a formatter printing to w
func NewJSONFormatterTo(w io.Writer) *JSONFormatter {
	return &JSONFormatter{out: w}
}

// FormatRiskSummary formats a risk summary as indented JSON bytes
func (f *JSONFormatter) FormatRiskSummary(s risk.Summary) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// PrintRiskSummary prints a risk summary as JSON
func (f *JSONFormatter) PrintRiskSummary(s risk.Summary) {
	data, err := f.FormatRiskSummary(s)
	if err != nil {
		return
	}
	fmt.Fprintln(f.out, string(data))
}

// WriteRiskSummaryJSON writes a risk summary to a JSON file
func WriteRiskSummaryJSON(s risk.Summary, path string) error {
	data, err := NewJSONFormatter().FormatRiskSummary(s)
	if err != nil {
		return err
	}

	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
