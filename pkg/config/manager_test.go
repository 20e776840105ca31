package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(tempStore(t))
}

func TestRegisterSectionRejectsDuplicates(t *testing.T) {
	m := tempManager(t)

	require.NoError(t, m.RegisterSection(NewScraperSection()))
	assert.Error(t, m.RegisterSection(NewScraperSection()))
}

func TestGetSectionsRegistrationOrder(t *testing.T) {
	m := tempManager(t)
	require.NoError(t, m.RegisterSection(NewExportSection()))
	require.NoError(t, m.RegisterSection(NewScraperSection()))

	sections := m.GetSections()
	require.Len(t, sections, 2)
	assert.Equal(t, SectionIDExport, sections[0].ID())
	assert.Equal(t, SectionIDScraper, sections[1].ID())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)
	m := NewManager(store)

	scraper := NewScraperSection()
	scraper.Email = "user@example.com"
	scraper.Project = "P-4711"
	scraper.MaxRetries = 4
	require.NoError(t, m.RegisterSection(scraper))
	require.NoError(t, m.SaveAll())

	store2, err := NewFileStore(path)
	require.NoError(t, err)
	m2 := NewManager(store2)
	scraper2 := NewScraperSection()
	require.NoError(t, m2.RegisterSection(scraper2))
	require.NoError(t, m2.LoadAll())

	assert.Equal(t, "user@example.com", scraper2.GetEmail())
	assert.Equal(t, "P-4711", scraper2.GetProject())
	assert.Equal(t, 4, scraper2.GetMaxRetries())
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultBaseURL, scraper2.GetBaseURL())
}

func TestLoadAllKeepsDefaultsForMissingSections(t *testing.T) {
	m := tempManager(t)
	scraper := NewScraperSection()
	require.NoError(t, m.RegisterSection(scraper))
	require.NoError(t, m.LoadAll())

	assert.Equal(t, DefaultBaseURL, scraper.GetBaseURL())
	assert.Equal(t, DefaultMaxRetries, scraper.GetMaxRetries())
	assert.Equal(t, DefaultStableReads, scraper.GetStableReads())
}

func TestValidateAllReportsSection(t *testing.T) {
	m := tempManager(t)
	scraper := NewScraperSection()
	scraper.MaxRetries = 99
	require.NoError(t, m.RegisterSection(scraper))

	err := m.ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), SectionIDScraper)
}
