// Package roster supplies workers and leads to the engine.
package roster

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Source supplies the current roster; every call reflects the latest snapshot
type Source interface {
	Workers(ctx context.Context) ([]types.Worker, error)
	Worker(ctx context.Context, workerID string) (*types.Worker, error)
	Lead(ctx context.Context, leadID string) (*types.Lead, error)
}

// File models the on-disk roster schema
type File struct {
	Leads   []types.Lead   `yaml:"leads"`
	Workers []types.Worker `yaml:"workers"`
}

// Parse decodes and validates roster YAML
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("roster: parse: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	return &f, nil
}

var knownServices = map[types.ServiceType]bool{
	types.ServiceHomeCleaning: true,
	types.ServiceCarWash:      true,
	types.ServiceLaundry:      true,
}

func (f *File) validate() error {
	seen := make(map[string]bool)
	for _, l := range f.Leads {
		if strings.TrimSpace(l.ID) == "" {
			return fmt.Errorf("lead id is required")
		}
		if seen["lead/"+l.ID] {
			return fmt.Errorf("duplicate lead %q", l.ID)
		}
		seen["lead/"+l.ID] = true
		if err := checkServices(l.Services); err != nil {
			return fmt.Errorf("lead %q: %w", l.ID, err)
		}
	}
	for _, w := range f.Workers {
		if strings.TrimSpace(w.ID) == "" {
			return fmt.Errorf("worker id is required")
		}
		if seen["worker/"+w.ID] {
			return fmt.Errorf("duplicate worker %q", w.ID)
		}
		seen["worker/"+w.ID] = true
		if err := checkServices(w.Services); err != nil {
			return fmt.Errorf("worker %q: %w", w.ID, err)
		}
	}
	return nil
}

func checkServices(services []types.ServiceType) error {
	for _, s := range services {
		if !knownServices[s] {
			return fmt.Errorf("unknown service %q", s)
		}
	}
	return nil
}

// Static serves a fixed roster
type Static struct {
	leads   map[string]types.Lead
	workers []types.Worker
}

// NewStatic creates a source over f
func NewStatic(f *File) *Static {
	s := &Static{leads: make(map[string]types.Lead, len(f.Leads))}
	for _, l := range f.Leads {
		s.leads[l.ID] = l
	}
	s.workers = append(s.workers, f.Workers...)
	return s
}

// Workers returns a copy of the roster in file order
func (s *Static) Workers(ctx context.Context) ([]types.Worker, error) {
	return append([]types.Worker(nil), s.workers...), nil
}

// Worker returns one worker
func (s *Static) Worker(ctx context.Context, workerID string) (*types.Worker, error) {
	for i := range s.workers {
		if s.workers[i].ID == workerID {
			w := s.workers[i]
			return &w, nil
		}
	}
	return nil, types.NewError(types.ErrInvalidArgument, "unknown worker %q", workerID)
}

// Lead returns one lead
func (s *Static) Lead(ctx context.Context, leadID string) (*types.Lead, error) {
	l, ok := s.leads[leadID]
	if !ok {
		return nil, types.NewError(types.ErrInvalidArgument, "unknown lead %q", leadID)
	}
	return &l, nil
}

// LeadIDs lists the configured leads
func (s *Static) LeadIDs() []string {
	ids := make([]string, 0, len(s.leads))
	for id := range s.leads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FileSource re-reads a YAML roster file on every call so edits are picked up on refresh
type FileSource struct {
	path string
}

// NewFileSource validates the file once and returns a source over it
func NewFileSource(path string) (*FileSource, error) {
	fs := &FileSource{path: path}
	if _, err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileSource) load() (*Static, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", fs.path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return NewStatic(f), nil
}

// Workers returns the roster as currently on disk
func (fs *FileSource) Workers(ctx context.Context) ([]types.Worker, error) {
	s, err := fs.load()
	if err != nil {
		return nil, err
	}
	return s.Workers(ctx)
}

// Worker returns one worker as currently on disk
func (fs *FileSource) Worker(ctx context.Context, workerID string) (*types.Worker, error) {
	s, err := fs.load()
	if err != nil {
		return nil, err
	}
	return s.Worker(ctx, workerID)
}

// Lead returns one lead as currently on disk
func (fs *FileSource) Lead(ctx context.Context, leadID string) (*types.Lead, error) {
	s, err := fs.load()
	if err != nil {
		return nil, err
	}
	return s.Lead(ctx, leadID)
}
