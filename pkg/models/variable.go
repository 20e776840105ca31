// Package models defines the PLC variable data model produced by an
// extraction run and consumed by the export writers.
package models

import (
	"fmt"
	"strings"
)

// Category classifies a PLC variable by the address range it lives in.
type Category string

const (
	// CategoryInput covers process input addresses (I...).
	CategoryInput Category = "Input"

	// CategoryOutput covers process output addresses (Q...).
	CategoryOutput Category = "Output"

	// CategoryMemory covers internal memory flags (M...).
	CategoryMemory Category = "Memory"

	// CategoryUnknown is used when the address prefix is not recognized.
	CategoryUnknown Category = "Unknown"
)

// CategoryFromAddress derives the category from the leading address letter.
// EPLAN uses the IEC notation: I for inputs, Q for outputs, M for flags.
func CategoryFromAddress(address string) Category {
	switch {
	case strings.HasPrefix(address, "I"):
		return CategoryInput
	case strings.HasPrefix(address, "Q"):
		return CategoryOutput
	case strings.HasPrefix(address, "M"):
		return CategoryMemory
	default:
		return CategoryUnknown
	}
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// VariableRecord is a single PLC variable entry read from a diagram page.
// Records are value types and are not modified after extraction.
type VariableRecord struct {
	// Address is the IEC address string, e.g. "I3.4" or "QW12".
	Address string `json:"address"`

	// Symbol is the symbolic name / function text attached to the address.
	Symbol string `json:"symbol"`

	// Category is derived from the address prefix.
	Category Category `json:"category"`

	// Comment is optional free text carried alongside the entry.
	Comment string `json:"comment,omitempty"`

	// Sheet identifies the source diagram page the entry was read from.
	Sheet string `json:"sheet,omitempty"`
}

// NewVariableRecord builds a record and classifies it from its address.
func NewVariableRecord(address, symbol, sheet string) VariableRecord {
	return VariableRecord{
		Address:  address,
		Symbol:   symbol,
		Category: CategoryFromAddress(address),
		Sheet:    sheet,
	}
}

// MatchesFilter reports whether any of the record's fields contain the
// filter string (case-insensitive). An empty filter matches everything.
func (r VariableRecord) MatchesFilter(filter string) bool {
	if filter == "" {
		return true
	}

	filter = strings.ToLower(filter)
	return strings.Contains(strings.ToLower(r.Address), filter) ||
		strings.Contains(strings.ToLower(r.Symbol), filter) ||
		strings.Contains(strings.ToLower(r.Comment), filter) ||
		strings.Contains(strings.ToLower(r.Sheet), filter)
}

// String renders the record for log output.
func (r VariableRecord) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Address, r.Symbol, r.Category)
}
