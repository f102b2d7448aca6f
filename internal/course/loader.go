package course

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-analysis/internal/seminar"
)

// Loader serves courses and seminars from YAML fixture files. Files named
// *.course.yaml hold one course, *.seminar.yaml one seminar. Curriculum and
// program values may be written as a string or as a YAML mapping.
type Loader struct {
	rootDir  string
	courses  map[string]Course
	seminars map[string]seminar.Seminar
	mu       sync.RWMutex
}

type courseFile struct {
	ID                string     `yaml:"id"`
	Title             string     `yaml:"title"`
	Curriculum        yaml.Node  `yaml:"curriculum"`
	AnalysisMaterials []Material `yaml:"analysis_materials"`
}

type seminarFile struct {
	ID      string    `yaml:"id"`
	Title   string    `yaml:"title"`
	Program yaml.Node `yaml:"program"`
}

// NewLoader creates a fixture loader and loads every file under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir:  rootDir,
		courses:  make(map[string]Course),
		seminars: make(map[string]seminar.Seminar),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading fixtures: %w", err)
	}

	slog.Info("fixtures loaded", "courses", len(l.courses), "seminars", len(l.seminars))
	return l, nil
}

func (l *Loader) GetCourse(_ context.Context, id string) (*Course, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.courses[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.AnalysisMaterials = append([]Material{}, c.AnalysisMaterials...)
	return &c, nil
}

func (l *Loader) GetSeminar(_ context.Context, id string) (*seminar.Seminar, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.seminars[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", seminar.ErrNotFound, id)
	}
	return &s, nil
}

// Courses returns the number of loaded courses.
func (l *Loader) Courses() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.courses)
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case hasSuffix(path, ".course"):
			return l.loadCourse(path)
		case hasSuffix(path, ".seminar"):
			return l.loadSeminar(path)
		}
		return nil
	})
}

func hasSuffix(path, kind string) bool {
	return strings.HasSuffix(path, kind+".yaml") || strings.HasSuffix(path, kind+".yml")
}

func (l *Loader) loadCourse(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f courseFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid course YAML", "path", path, "error", err)
		return nil
	}
	if f.ID == "" {
		return nil
	}

	curriculum, err := nodeText(&f.Curriculum)
	if err != nil {
		slog.Warn("skipping course with unreadable curriculum", "path", path, "error", err)
		return nil
	}

	c := Course{
		ID:                f.ID,
		Title:             f.Title,
		Curriculum:        curriculum,
		AnalysisMaterials: f.AnalysisMaterials,
	}
	if c.AnalysisMaterials == nil {
		c.AnalysisMaterials = []Material{}
	}

	l.mu.Lock()
	l.courses[c.ID] = c
	l.mu.Unlock()
	return nil
}

func (l *Loader) loadSeminar(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var f seminarFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		slog.Warn("skipping invalid seminar YAML", "path", path, "error", err)
		return nil
	}
	if f.ID == "" {
		return nil
	}

	var program json.RawMessage
	switch f.Program.Kind {
	case 0:
	case yaml.ScalarNode:
		if f.Program.Tag != "!!null" {
			program = seminar.ProgramFromText(f.Program.Value)
		}
	default:
		var v any
		if err := f.Program.Decode(&v); err != nil {
			slog.Warn("skipping seminar with unreadable program", "path", path, "error", err)
			return nil
		}
		if program, err = json.Marshal(v); err != nil {
			slog.Warn("skipping seminar with unreadable program", "path", path, "error", err)
			return nil
		}
	}

	l.mu.Lock()
	l.seminars[f.ID] = seminar.Seminar{ID: f.ID, Title: f.Title, Program: program}
	l.mu.Unlock()
	return nil
}

// nodeText returns a scalar as-is and encodes a mapping or sequence as JSON.
func nodeText(n *yaml.Node) (string, error) {
	switch n.Kind {
	case 0:
		return "", nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
