// Package seed creates the initial columns of an empty board from a YAML file:
//
//	columns:
//	  - title: Todo
//	    color: "#e2e8f0"
//	  - title: In Progress
//	  - title: Done
package seed

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
)

type Column struct {
	Title string  `yaml:"title"`
	Color *string `yaml:"color"`
}

type File struct {
	Columns []Column `yaml:"columns"`
}

// Columns is the part of the column service the seeder needs.
type Columns interface {
	List(ctx context.Context) ([]models.Column, error)
	Create(ctx context.Context, title string, color *string) (*models.Column, error)
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i, c := range f.Columns {
		if c.Title == "" {
			return nil, fmt.Errorf("seed column %d has no title", i+1)
		}
	}
	return &f, nil
}

// Apply creates the file's columns in order when the board has none. It
// returns how many columns were created.
func Apply(ctx context.Context, columns Columns, f *File) (int, error) {
	existing, err := columns.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		log.Infof("board already has %d columns, seed skipped", len(existing))
		return 0, nil
	}

	for i, c := range f.Columns {
		if _, err := columns.Create(ctx, c.Title, c.Color); err != nil {
			return i, fmt.Errorf("failed to seed column %q: %w", c.Title, err)
		}
	}
	log.Infof("board seeded with %d columns", len(f.Columns))
	return len(f.Columns), nil
}
