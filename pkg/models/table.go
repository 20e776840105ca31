package models

import (
	"sort"
	"time"
)

// VariableTable is the ordered result of one completed extraction run.
// Record order is the document order of the source pages; sorting helpers
// reorder in place when a different presentation is wanted.
type VariableTable struct {
	// Project is the project reference the table was extracted from.
	Project string `json:"project"`

	// ExtractedAt is the time the extraction completed.
	ExtractedAt time.Time `json:"extracted_at"`

	// Records holds the variable entries in source order.
	Records []VariableRecord `json:"records"`
}

// NewVariableTable creates an empty table for the given project reference.
func NewVariableTable(project string) *VariableTable {
	return &VariableTable{
		Project:     project,
		ExtractedAt: time.Now(),
	}
}

// Append adds a record, preserving insertion order.
func (t *VariableTable) Append(r VariableRecord) {
	t.Records = append(t.Records, r)
}

// Len returns the number of records in the table.
func (t *VariableTable) Len() int {
	return len(t.Records)
}

// Filter returns the records matching the filter string, in table order.
func (t *VariableTable) Filter(filter string) []VariableRecord {
	if filter == "" {
		return t.Records
	}

	var matched []VariableRecord
	for _, r := range t.Records {
		if r.MatchesFilter(filter) {
			matched = append(matched, r)
		}
	}
	return matched
}

// ByCategory returns the records belonging to the given category.
func (t *VariableTable) ByCategory(c Category) []VariableRecord {
	var matched []VariableRecord
	for _, r := range t.Records {
		if r.Category == c {
			matched = append(matched, r)
		}
	}
	return matched
}

// SortByAddress orders records naturally by address: the letter prefix
// lexically, then each embedded number numerically, so I2.1 sorts before
// I10.0.
func (t *VariableTable) SortByAddress() {
	sort.SliceStable(t.Records, func(i, j int) bool {
		return naturalLess(t.Records[i].Address, t.Records[j].Address)
	})
}

// SortBySymbol orders records by symbolic name.
func (t *VariableTable) SortBySymbol() {
	sort.SliceStable(t.Records, func(i, j int) bool {
		return t.Records[i].Symbol < t.Records[j].Symbol
	})
}

// SortByCategory orders records by category, keeping source order within
// each category.
func (t *VariableTable) SortByCategory() {
	sort.SliceStable(t.Records, func(i, j int) bool {
		return t.Records[i].Category < t.Records[j].Category
	})
}

// naturalLess compares two address strings by splitting them into a letter
// prefix and the sequence of embedded numbers.
func naturalLess(a, b string) bool {
	prefixA, numsA := splitAddress(a)
	prefixB, numsB := splitAddress(b)

	if prefixA != prefixB {
		return prefixA < prefixB
	}

	for i := 0; i < len(numsA) && i < len(numsB); i++ {
		if numsA[i] != numsB[i] {
			return numsA[i] < numsB[i]
		}
	}
	return len(numsA) < len(numsB)
}

// splitAddress separates the leading non-digit prefix from the numbers that
// follow, e.g. "IW12.3" -> ("IW", [12, 3]).
func splitAddress(s string) (string, []int) {
	var prefix []rune
	var nums []int
	current := 0
	inNumber := false

	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			current = current*10 + int(ch-'0')
			inNumber = true
			continue
		}
		if inNumber {
			nums = append(nums, current)
			current = 0
			inNumber = false
		}
		if len(nums) == 0 {
			prefix = append(prefix, ch)
		}
	}
	if inNumber {
		nums = append(nums, current)
	}

	return string(prefix), nums
}
