package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
)

// jsonDocument is the stable on-disk shape; consumers rely on the field
// names staying put.
type jsonDocument struct {
	Project     string                  `json:"project"`
	ExtractedAt time.Time               `json:"extracted_at"`
	RecordCount int                     `json:"record_count"`
	Records     []models.VariableRecord `json:"records"`
}

// JSONExporter writes the table as one pretty-printed document.
type JSONExporter struct{}

func (e *JSONExporter) Format() string    { return config.FormatJSON }
func (e *JSONExporter) Extension() string { return "json" }

func (e *JSONExporter) Write(w io.Writer, table *models.VariableTable) error {
	doc := jsonDocument{
		Project:     table.Project,
		ExtractedAt: table.ExtractedAt,
		RecordCount: table.Len(),
		Records:     table.Records,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
