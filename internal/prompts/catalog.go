package prompts

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/heirloom-app/heirloom/internal/wizard"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// CategoryGeneral prompts are offered for every recipient.
const CategoryGeneral = "general"

//go:embed default_prompts.yaml
var defaultCatalog []byte

// Catalog is the library of curated prompts.
type Catalog struct {
	Prompts []wizard.Prompt `yaml:"prompts"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return parseYAML(defaultCatalog)
}

// For returns general prompts plus those whose category matches relationship.
func (c *Catalog) For(relationship string) []wizard.Prompt {
	relationship = strings.ToLower(strings.TrimSpace(relationship))
	var out []wizard.Prompt
	for _, p := range c.Prompts {
		cat := strings.ToLower(p.Category)
		if cat == CategoryGeneral || (relationship != "" && cat == relationship) {
			out = append(out, p)
		}
	}
	return out
}

// Categories lists the distinct categories in catalog order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.Prompts {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// Loader reads a prompt catalog from disk
type Loader struct {
	path string
}

// NewLoader creates a loader for a .yaml, .jsonl or .parquet catalog
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the catalog, choosing the format by file extension
func (l *Loader) Load() (*Catalog, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	var (
		cat *Catalog
		err error
	)
	switch ext {
	case ".yaml", ".yml":
		cat, err = l.loadYAML()
	case ".jsonl", ".json":
		cat, err = l.loadJSONL()
	case ".parquet":
		cat, err = l.loadParquet()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .yaml, .jsonl, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := cat.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", l.path, err)
	}

	slog.Debug("Loaded prompt catalog", "path", l.path, "prompts", len(cat.Prompts))
	return cat, nil
}

func (l *Loader) loadYAML() (*Catalog, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return parseYAML(data)
}

func parseYAML(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return &cat, nil
}

func (l *Loader) loadJSONL() (*Catalog, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer file.Close()

	cat := &Catalog{}
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p wizard.Prompt
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		cat.Prompts = append(cat.Prompts, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}
	return cat, nil
}

func (l *Loader) loadParquet() (*Catalog, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[wizard.Prompt](pf)
	defer reader.Close()

	cat := &Catalog{}
	rows := make([]wizard.Prompt, 128)
	for {
		n, err := reader.Read(rows)
		cat.Prompts = append(cat.Prompts, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return cat, nil
}

// Export writes the catalog as a parquet file
func (c *Catalog) Export(path string) error {
	if err := parquet.WriteFile(path, c.Prompts); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	return nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool, len(c.Prompts))
	for i, p := range c.Prompts {
		if p.ID == "" {
			return fmt.Errorf("prompt %d has no id", i)
		}
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("prompt %s has no text", p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate prompt id %s", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
