package scrape

import (
	"regexp"
	"strings"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/models"
)

var (
	// addressPattern matches PLC addresses: bit addresses like I2.3,
	// Q0.1, M10.4, word-bit forms like IW2.0 and plain word addresses
	// like QW12.
	addressPattern = regexp.MustCompile(`\b([IQM]W?\d+\.\d+|[IQM]W\d+)\b`)

	// functionPattern matches the function block headings printed above
	// groups of variables, e.g. "Valve control 12.3.1 MAIN".
	functionPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z\s]+(?:\d+\.)+\d+(?:\s+[A-Z]+)?$`)

	// sheetPattern pulls the sheet identifier from the page header.
	sheetPattern = regexp.MustCompile(`(?:Page|Sheet|Blatt)\s*[:=]?\s*(\S+)`)
)

// headerNoise lists text fragments belonging to the drawing frame rather
// than the variable table. Matched case-insensitively as substrings.
var headerNoise = []string{
	"sheet",
	"blatt",
	"editor",
	"bearbeiter",
	"name",
	"gmbh",
	"date",
	"datum",
	"et 200sp",
	"approved",
	"revision",
}

// parseVariableRows turns the text nodes of one diagram page into
// variable records. Nodes arrive in document order: the sheet id comes
// from the page header, function headings apply to every address below
// them until the next heading, and a symbol name is taken from the
// address's own node or the node following it.
func parseVariableRows(texts []string) []models.VariableRecord {
	var records []models.VariableRecord
	var sheet, function string

	for i, text := range texts {
		if sheet == "" {
			if m := sheetPattern.FindStringSubmatch(text); m != nil {
				sheet = m[1]
			}
		}

		if isHeaderNoise(text) {
			continue
		}

		if addr := addressPattern.FindString(text); addr != "" {
			symbol := symbolFromNode(text, addr)
			if symbol == "" {
				symbol = symbolFromNext(texts, i+1)
			}
			rec := models.NewVariableRecord(addr, symbol, sheet)
			rec.Comment = function
			records = append(records, rec)
			continue
		}

		if functionPattern.MatchString(text) {
			function = strings.TrimSpace(text)
		}
	}

	return records
}

// symbolFromNode strips the address out of its own text node; whatever
// remains is the symbol name printed on the same line.
func symbolFromNode(text, addr string) string {
	rest := strings.Replace(text, addr, "", 1)
	rest = strings.Trim(rest, " \t:-")
	return rest
}

// symbolFromNext looks at the following node for the symbol name. An
// address, heading or frame text there means the symbol column is empty.
func symbolFromNext(texts []string, idx int) string {
	if idx >= len(texts) {
		return ""
	}
	next := texts[idx]
	if addressPattern.MatchString(next) || isHeaderNoise(next) || functionPattern.MatchString(next) {
		return ""
	}
	return strings.TrimSpace(next)
}

func isHeaderNoise(text string) bool {
	lower := strings.ToLower(text)
	for _, noise := range headerNoise {
		if strings.Contains(lower, noise) {
			return true
		}
	}
	return false
}
