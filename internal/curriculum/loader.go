package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/campusgrid/degree-planner/internal/models"
)

// Loader manages loading and caching of program catalogs and their
// prerequisite graphs. Programs are keyed by "CODE@CATALOG"; the bare
// program code resolves to the newest loaded catalog version.
type Loader struct {
	mu       sync.RWMutex
	mode     EvalMode
	programs map[string]*models.Program
	graphs   map[string]*Graph
	latest   map[string]string // program code -> newest catalog token
}

// NewLoader creates a new catalog loader
func NewLoader(mode EvalMode) *Loader {
	return &Loader{
		mode:     mode,
		programs: make(map[string]*models.Program),
		graphs:   make(map[string]*Graph),
		latest:   make(map[string]string),
	}
}

// Key builds the canonical program key from code and catalog version.
func Key(code, catalog string) string {
	return code + "@" + catalog
}

// LoadFromDir loads all YAML program catalogs from a directory,
// including one level of subdirectories.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading program catalogs", "dir", dir)

	patterns := []string{"*.yaml", "*.yml"}
	var files []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)

		subMatches, err := filepath.Glob(filepath.Join(dir, "*", pattern))
		if err != nil {
			continue
		}
		files = append(files, subMatches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load program catalog", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("program catalogs loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single program catalog from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var program models.Program
	if err := yaml.Unmarshal(data, &program); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if program.Code == "" {
		return fmt.Errorf("program code is required")
	}
	if program.Catalog == "" {
		return fmt.Errorf("program catalog version is required")
	}
	if len(program.Courses) == 0 {
		return fmt.Errorf("program %s has no courses", program.Code)
	}

	graph, err := NewGraph(program.Courses, WithEvalMode(l.mode))
	if err != nil {
		return fmt.Errorf("failed to build prerequisite graph: %w", err)
	}

	key := Key(program.Code, program.Catalog)

	l.mu.Lock()
	l.programs[key] = &program
	l.graphs[key] = graph
	if program.Catalog > l.latest[program.Code] {
		l.latest[program.Code] = program.Catalog
	}
	l.mu.Unlock()

	slog.Info("program catalog loaded",
		"program", program.Code,
		"catalog", program.Catalog,
		"courses", len(program.Courses),
	)
	return nil
}

// Add programmatically registers a program catalog
func (l *Loader) Add(program *models.Program) error {
	graph, err := NewGraph(program.Courses, WithEvalMode(l.mode))
	if err != nil {
		return err
	}

	key := Key(program.Code, program.Catalog)

	l.mu.Lock()
	l.programs[key] = program
	l.graphs[key] = graph
	if program.Catalog > l.latest[program.Code] {
		l.latest[program.Code] = program.Catalog
	}
	l.mu.Unlock()
	return nil
}

// resolveKey maps a bare program code to its newest catalog key.
// Full "CODE@CATALOG" keys pass through unchanged.
func (l *Loader) resolveKey(code string) string {
	if _, ok := l.programs[code]; ok {
		return code
	}
	if catalog, ok := l.latest[code]; ok {
		return Key(code, catalog)
	}
	return code
}

// Get retrieves a program by code or by "CODE@CATALOG" key
func (l *Loader) Get(code string) *models.Program {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.programs[l.resolveKey(code)]
}

// Graph retrieves the prerequisite graph for a program
func (l *Loader) Graph(code string) *Graph {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.graphs[l.resolveKey(code)]
}

// List returns all loaded programs
func (l *Loader) List() []*models.Program {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Program, 0, len(l.programs))
	for _, p := range l.programs {
		result = append(result, p)
	}
	return result
}
