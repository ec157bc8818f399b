// Package store archives schedule runs.
//
// Every solved schedule can be saved as a [Run] together with the model
// statistics and the solver data file that produced it, so results can be
// retrieved later by ID through the CLI or the HTTP API.
//
// Backends:
//   - [MemoryStore]: in-process, for tests and single-shot servers
//   - [FileStore]: one JSON file per run, for the CLI
//   - [MongoStore]: a MongoDB collection, for shared deployments
//
// [Open] picks a backend from a [Config].
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/nocsched/pkg/errors"
	"github.com/matzehuels/nocsched/pkg/schedule"
)

// ErrNotFound is returned when no run has the requested ID.
var ErrNotFound = errors.New(errors.ErrCodeNotFound, "run not found")

// Run is one archived pipeline execution.
type Run struct {
	ID           string             `json:"id" bson:"_id"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	InputHash    string             `json:"input_hash,omitempty" bson:"input_hash,omitempty"`
	SolverID     string             `json:"solver_id,omitempty" bson:"solver_id,omitempty"`
	Hyperperiod  int                `json:"hyperperiod" bson:"hyperperiod"`
	NumLinks     int                `json:"num_links" bson:"num_links"`
	SkippedLinks int                `json:"skipped_links" bson:"skipped_links"`
	NumPackets   int                `json:"num_packets" bson:"num_packets"`
	DZN          string             `json:"dzn,omitempty" bson:"dzn,omitempty"`
	Schedule     *schedule.Schedule `json:"schedule,omitempty" bson:"schedule,omitempty"`
	Warnings     []string           `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// Store is the interface for run archives.
type Store interface {
	// Save stores run, assigning ID and CreatedAt when they are unset.
	Save(ctx context.Context, run *Run) error

	// Get returns the run with the given ID, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns up to limit runs, newest first. A limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run. Deleting a missing run is not an error.
	Delete(ctx context.Context, id string) error

	Close() error
}

// NewID returns a fresh run ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the form produced by [NewID].
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func prepare(run *Run) {
	if run.ID == "" {
		run.ID = NewID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
}

func notFound(id string) error {
	return fmt.Errorf("run %s: %w", id, ErrNotFound)
}

// Backend names accepted by [Open].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	Dir        string // FileStore directory
	MongoURI   string
	Database   string
	Collection string
}

// Open returns the backend named by cfg.Backend. An empty name selects the
// memory store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		s, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMongo:
		s, err := NewMongoStore(ctx, MongoOptions{URI: cfg.MongoURI, Database: cfg.Database, Collection: cfg.Collection})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}
