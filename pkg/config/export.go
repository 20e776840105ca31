package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDExport is the identifier for the export settings section
	SectionIDExport = "export"
)

// Export format names accepted by the export section.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ExportSection manages the output settings: which file formats to write
// and where.
type ExportSection struct {
	Formats   []string
	OutputDir string
	mu        sync.RWMutex
}

// NewExportSection creates an export section with default settings.
func NewExportSection() *ExportSection {
	return &ExportSection{
		Formats:   []string{FormatXLSX},
		OutputDir: ".",
	}
}

// ID returns the section identifier.
func (s *ExportSection) ID() string {
	return SectionIDExport
}

// Title returns the section title.
func (s *ExportSection) Title() string {
	return "Export Settings"
}

// Description returns the section description.
func (s *ExportSection) Description() string {
	return "File formats and output directory for extracted variable tables."
}

// Data returns the current configuration data.
func (s *ExportSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	formats := make([]interface{}, len(s.Formats))
	for i, f := range s.Formats {
		formats[i] = f
	}
	return map[string]interface{}{
		"formats":    formats,
		"output_dir": s.OutputDir,
	}
}

// SetData updates the configuration from the provided data.
func (s *ExportSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := data["formats"].([]interface{}); ok && len(raw) > 0 {
		formats := make([]string, 0, len(raw))
		for _, f := range raw {
			if name, ok := f.(string); ok && name != "" {
				formats = append(formats, name)
			}
		}
		if len(formats) > 0 {
			s.Formats = formats
		}
	}
	if v, ok := data["output_dir"].(string); ok && v != "" {
		s.OutputDir = v
	}
	return nil
}

// Validate validates the current configuration.
func (s *ExportSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.Formats) == 0 {
		return fmt.Errorf("at least one export format must be enabled")
	}
	for _, f := range s.Formats {
		switch f {
		case FormatXLSX, FormatCSV, FormatJSON:
		default:
			return fmt.Errorf("unknown export format %q", f)
		}
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *ExportSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Formats = []string{FormatXLSX}
	s.OutputDir = "."
}

// GetFormats returns the enabled export formats.
func (s *ExportSection) GetFormats() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.Formats))
	copy(out, s.Formats)
	return out
}

// GetOutputDir returns the output directory for exported files.
func (s *ExportSection) GetOutputDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.OutputDir
}
