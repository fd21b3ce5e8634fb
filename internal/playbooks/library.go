package playbooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bissquit/incident-forge/internal/domain"
	"github.com/bissquit/incident-forge/internal/pkg/ctxlog"
)

// libraryPlaybook is the on-disk YAML schema for library playbooks.
type libraryPlaybook struct {
	Name              string        `yaml:"name"`
	Description       string        `yaml:"description"`
	Category          string        `yaml:"category"`
	SeverityThreshold string        `yaml:"severity_threshold"`
	Tags              []string      `yaml:"tags"`
	Steps             []libraryStep `yaml:"steps"`
}

type libraryStep struct {
	Name              string `yaml:"name"`
	Instructions      string `yaml:"instructions"`
	RequiredRole      string `yaml:"required_role"`
	EstimatedDuration int    `yaml:"estimated_duration"`
	Automated         bool   `yaml:"automated"`
}

// LoadLibrary registers every .yaml/.yml playbook found in dir. Files that
// fail to parse or validate are logged and skipped so one broken definition
// does not block the rest of the library. Returns the number of playbooks
// loaded.
func (s *Service) LoadLibrary(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read playbook library: %w", err)
	}

	logger := ctxlog.FromContext(ctx)
	loaded := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		if err := s.loadLibraryFile(ctx, path); err != nil {
			logger.Warn("skipping playbook file",
				"file", entry.Name(),
				"error", err)

			continue
		}

		loaded++
	}

	return loaded, nil
}

func (s *Service) loadLibraryFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var file libraryPlaybook

	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	input := CreatePlaybookInput{
		Name:              file.Name,
		Description:       file.Description,
		Category:          domain.IncidentCategory(file.Category),
		SeverityThreshold: domain.IncidentSeverity(file.SeverityThreshold),
		Tags:              file.Tags,
	}

	for _, step := range file.Steps {
		input.Steps = append(input.Steps, StepInput{
			Name:              step.Name,
			Instructions:      step.Instructions,
			RequiredRole:      domain.ResponderRole(step.RequiredRole),
			EstimatedDuration: step.EstimatedDuration,
			Automated:         step.Automated,
		})
	}

	if _, err := s.CreatePlaybook(ctx, input); err != nil {
		return err
	}

	return nil
}
