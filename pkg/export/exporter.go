// Package export writes extracted variable tables to disk in the
// supported interchange formats.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
)

// Exporter writes one variable table in one format.
type Exporter interface {
	// Format is the config format key this exporter serves.
	Format() string

	// Extension is the file extension without the dot.
	Extension() string

	// Write renders the table to w.
	Write(w io.Writer, table *models.VariableTable) error
}

// ForFormat returns the exporter registered for the given format key.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case config.FormatCSV:
		return &CSVExporter{}, nil
	case config.FormatJSON:
		return &JSONExporter{}, nil
	case config.FormatXLSX:
		return &ExcelExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// WriteAll renders the table once per requested format into dir and
// returns the written file paths. The directory is created if missing.
// A failure leaves already written files in place and reports which
// format failed.
func WriteAll(dir string, formats []string, table *models.VariableTable) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	base := fileBase(table.Project)
	var written []string
	for _, format := range formats {
		exp, err := ForFormat(format)
		if err != nil {
			return written, err
		}

		path := filepath.Join(dir, fmt.Sprintf("%s.%s", base, exp.Extension()))
		if err := writeFile(path, exp, table); err != nil {
			return written, fmt.Errorf("%s export: %w", exp.Format(), err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, exp Exporter, table *models.VariableTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exp.Write(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fileBase derives a filesystem-safe file stem from the project name.
func fileBase(project string) string {
	if project == "" {
		project = "export"
	}
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, project)
	return mapped + "-variables"
}
