// Package learning loads static teaching content from YAML files.
// Each pack directory holds a pack.yaml plus one file per module.
package learning

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"gopkg.in/yaml.v3"
)

// PackFile represents the YAML structure for a content pack
type PackFile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Modules     []string `yaml:"modules"` // ordered module file names without extension
}

// ModuleFile represents the YAML structure for a learning module
type ModuleFile struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Concepts    []string `yaml:"concepts"`
	Steps       []struct {
		Title       string   `yaml:"title"`
		Explanation string   `yaml:"explanation"`
		CodeSnippet string   `yaml:"code_snippet"`
		Challenge   string   `yaml:"challenge"`
		SelfCheck   []string `yaml:"self_check"`
	} `yaml:"steps"`
}

// Loader handles loading learning modules from YAML files
type Loader struct {
	basePath string
}

// NewLoader creates a new content loader
func NewLoader(basePath string) *Loader {
	return &Loader{basePath: basePath}
}

// LoadModule loads a single module from a pack directory
func (l *Loader) LoadModule(packID, name string) (*domain.LearningModule, error) {
	path := filepath.Join(l.basePath, packID, name+".yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module file: %w", err)
	}

	var file ModuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse module file: %w", err)
	}

	module := &domain.LearningModule{
		ID:          file.ID,
		Title:       file.Title,
		Description: file.Description,
		Concepts:    file.Concepts,
	}
	if module.ID == "" {
		module.ID = packID + "/" + name
	}

	for _, s := range file.Steps {
		module.Steps = append(module.Steps, domain.LearningStep{
			Title:       s.Title,
			Explanation: s.Explanation,
			CodeSnippet: s.CodeSnippet,
			Challenge:   s.Challenge,
			SelfCheck:   s.SelfCheck,
		})
	}

	return module, nil
}

// LoadPack loads a pack definition and all its modules in order
func (l *Loader) LoadPack(packID string) ([]*domain.LearningModule, error) {
	packPath := filepath.Join(l.basePath, packID, "pack.yaml")

	data, err := os.ReadFile(packPath)
	if err != nil {
		return nil, fmt.Errorf("read pack file: %w", err)
	}

	var pack PackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse pack file: %w", err)
	}

	modules := make([]*domain.LearningModule, 0, len(pack.Modules))
	for _, name := range pack.Modules {
		module, err := l.LoadModule(packID, name)
		if err != nil {
			return nil, fmt.Errorf("load module %s: %w", name, err)
		}
		modules = append(modules, module)
	}

	return modules, nil
}

// ListPacks returns the IDs of all pack directories under the base path
func (l *Loader) ListPacks() ([]string, error) {
	entries, err := os.ReadDir(l.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	var packs []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(l.basePath, entry.Name(), "pack.yaml")); err == nil {
			packs = append(packs, entry.Name())
		}
	}
	return packs, nil
}
