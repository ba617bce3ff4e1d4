// Package project defines the persistence collaborator for finished briefs
// and a file-backed implementation of it.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/briefwizard/brief"
)

// Data is the assembled project payload built from a finished brief.
type Data struct {
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Description  string         `json:"description"`
	Objective    string         `json:"objective"`
	Deliverables []string       `json:"deliverables,omitempty"`
	Roadmap      *brief.Roadmap `json:"roadmap,omitempty"`
	Attachments  []string       `json:"attachments,omitempty"`
}

// Project is a persisted project.
type Project struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Data
}

// Creator persists a finished brief as a project.
type Creator interface {
	CreateProject(ctx context.Context, d Data) (*Project, error)
}

// DirStore persists projects as JSON documents in a directory.
type DirStore struct {
	dir    string
	logger *slog.Logger
}

// NewDirStore creates a store rooted at dir, creating it if needed.
func NewDirStore(dir string, logger *slog.Logger) (*DirStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	return &DirStore{dir: dir, logger: logger}, nil
}

// CreateProject implements Creator.
func (s *DirStore) CreateProject(ctx context.Context, d Data) (*Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	p := &Project{ID: uuid.NewString(), CreatedAt: time.Now(), Data: d}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	path := filepath.Join(s.dir, p.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write project: %w", err)
	}
	s.logger.Info("project created",
		slog.String("id", p.ID),
		slog.String("name", p.Name),
		slog.String("path", path))
	return p, nil
}

// Load reads a persisted project back by ID.
func (s *DirStore) Load(id string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, err
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project %s: %w", id, err)
	}
	return &p, nil
}
