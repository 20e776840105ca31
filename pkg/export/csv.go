package export

import (
	"encoding/csv"
	"io"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
)

// csvHeader matches the column layout engineering tools expect when
// importing symbol tables.
var csvHeader = []string{"Address", "Symbol Name", "Type", "Comment", "Sheet"}

// utf8BOM makes spreadsheet applications detect the encoding; without it
// umlauts in symbol names render garbled.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter writes semicolon-separated values, the delimiter German
// locale spreadsheet tools default to.
type CSVExporter struct {
	// Comma overrides the delimiter. Zero means semicolon.
	Comma rune

	// SkipBOM omits the UTF-8 byte order mark.
	SkipBOM bool
}

func (e *CSVExporter) Format() string    { return config.FormatCSV }
func (e *CSVExporter) Extension() string { return "csv" }

func (e *CSVExporter) Write(w io.Writer, table *models.VariableTable) error {
	if !e.SkipBOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if e.Comma != 0 {
		cw.Comma = e.Comma
	}

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range table.Records {
		row := []string{r.Address, r.Symbol, r.Category.String(), r.Comment, r.Sheet}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
