package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *VariableTable {
	t := NewVariableTable("P-4711")
	t.Append(NewVariableRecord("I10.0", "Door contact", "3"))
	t.Append(NewVariableRecord("I2.1", "Light barrier", "1"))
	t.Append(NewVariableRecord("Q0.1", "Main contactor", "2"))
	t.Append(NewVariableRecord("M4.0", "Auto mode", "2"))
	t.Append(NewVariableRecord("I2.10", "Overtravel switch", "1"))
	return t
}

func addresses(records []VariableRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Address
	}
	return out
}

func TestSortByAddressNaturalOrder(t *testing.T) {
	table := sampleTable()
	table.SortByAddress()

	assert.Equal(t,
		[]string{"I2.1", "I2.10", "I10.0", "M4.0", "Q0.1"},
		addresses(table.Records))
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("I2.1", "I10.0"))
	assert.True(t, naturalLess("I2.1", "I2.10"))
	assert.True(t, naturalLess("I2", "I2.0"))
	assert.True(t, naturalLess("IW2.0", "QW1.0"))
	assert.False(t, naturalLess("Q1.0", "I9.9"))
	assert.False(t, naturalLess("I2.1", "I2.1"))
}

func TestSplitAddress(t *testing.T) {
	prefix, nums := splitAddress("IW12.3")
	assert.Equal(t, "IW", prefix)
	assert.Equal(t, []int{12, 3}, nums)

	prefix, nums = splitAddress("Q0.1")
	assert.Equal(t, "Q", prefix)
	assert.Equal(t, []int{0, 1}, nums)
}

func TestFilter(t *testing.T) {
	table := sampleTable()

	matched := table.Filter("contact")
	require.Len(t, matched, 2)
	assert.Equal(t, "I10.0", matched[0].Address)
	assert.Equal(t, "Q0.1", matched[1].Address)

	assert.Len(t, table.Filter(""), table.Len())
	assert.Empty(t, table.Filter("no such thing"))
}

func TestByCategory(t *testing.T) {
	table := sampleTable()

	assert.Len(t, table.ByCategory(CategoryInput), 3)
	assert.Len(t, table.ByCategory(CategoryOutput), 1)
	assert.Len(t, table.ByCategory(CategoryMemory), 1)
	assert.Empty(t, table.ByCategory(CategoryUnknown))
}

func TestSortBySymbolStable(t *testing.T) {
	table := sampleTable()
	table.SortBySymbol()

	assert.Equal(t, "Auto mode", table.Records[0].Symbol)
	assert.Equal(t, "Overtravel switch", table.Records[len(table.Records)-1].Symbol)
}
