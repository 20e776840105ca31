// Package config provides the persisted application settings, organized as
// registrable sections over a JSON file store. Passwords are never written
// to disk; runs receive them in memory only.
package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager := NewManager(store)

	if err := manager.RegisterSection(NewScraperSection()); err != nil {
		return err
	}
	if err := manager.RegisterSection(NewExportSection()); err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetScraper returns the scraper section from global config.
// Returns nil if config is not initialized.
func GetScraper() *ScraperSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDScraper)
	if !ok {
		return nil
	}
	scraper, ok := section.(*ScraperSection)
	if !ok {
		return nil
	}
	return scraper
}

// GetExport returns the export section from global config.
// Returns nil if config is not initialized.
func GetExport() *ExportSection {
	if !IsInitialized() {
		return nil
	}
	section, ok := Global().GetSection(SectionIDExport)
	if !ok {
		return nil
	}
	export, ok := section.(*ExportSection)
	if !ok {
		return nil
	}
	return export
}
