package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/config"
	"github.com/Alexander423/EPLAN-eView-Extractor/pkg/orchestrator"
)

// batchJob is one entry in a batch file. Unset fields inherit the
// command-line and configuration defaults.
type batchJob struct {
	Project string   `yaml:"project"`
	Output  string   `yaml:"output,omitempty"`
	Formats []string `yaml:"formats,omitempty"`
	Visible *bool    `yaml:"visible,omitempty"`
}

// batchFile is the YAML document format for multi-project extraction.
type batchFile struct {
	Jobs []batchJob `yaml:"jobs"`
}

// batchDefaults carries the effective settings jobs fall back to.
type batchDefaults struct {
	OutputDir  string
	Formats    []string
	MaxRetries int
	Visible    bool
}

// runBatch extracts every job in the file sequentially. Runs share one
// orchestrator, so each job gets a fresh browser session and a failed
// job does not leak state into the next. The first failure stops the
// batch; completed exports stay on disk.
func runBatch(ctx context.Context, orch *orchestrator.Orchestrator, path string,
	creds config.Credentials, defaults batchDefaults) error {

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading batch file: %w", err)
	}

	var batch batchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parsing batch file: %w", err)
	}
	if len(batch.Jobs) == 0 {
		return fmt.Errorf("batch file %s contains no jobs", path)
	}

	for i, job := range batch.Jobs {
		if job.Project == "" {
			return fmt.Errorf("job %d has no project", i+1)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		output := defaults.OutputDir
		if job.Output != "" {
			output = job.Output
		}
		formats := defaults.Formats
		if len(job.Formats) > 0 {
			formats = job.Formats
		}
		visible := defaults.Visible
		if job.Visible != nil {
			visible = *job.Visible
		}

		fmt.Fprintf(os.Stderr, "== Job %d/%d: %s ==\n", i+1, len(batch.Jobs), job.Project)
		if err := extractOne(ctx, orch, creds, job.Project, output, formats, defaults.MaxRetries, visible); err != nil {
			return fmt.Errorf("job %d (%s): %w", i+1, job.Project, err)
		}
	}
	return nil
}
