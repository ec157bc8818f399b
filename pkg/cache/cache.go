// Package cache provides key/value caching for pipeline results.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON files under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [NullCache]: stores nothing, used when caching is disabled
//
// Keys are produced by a [Keyer] so that every entry point derives identical
// keys from identical inputs. Solver runs are by far the most expensive step,
// so solver outputs are cached by the hash of the exact data file sent.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry kind.
const (
	// TTLModel applies to exported solver data files.
	TTLModel = 24 * time.Hour

	// TTLSolve applies to raw solver outputs.
	TTLSolve = 7 * 24 * time.Hour

	// TTLRender applies to rendered topology images.
	TTLRender = 24 * time.Hour
)

// ModelKeyOpts are the inputs besides the input hash that change an exported model.
type ModelKeyOpts struct {
	LinkWidth   int `json:"link_width"`
	HeaderFlits int `json:"header_flits"`
	RoutingTime int `json:"routing_time"`
	Pad         int `json:"pad"`
}

// RenderKeyOpts are the options that change a rendered topology image.
type RenderKeyOpts struct {
	Format    string   `json:"format"`
	Highlight []string `json:"highlight,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// ModelKey is the key of the data file built from the given inputs.
	ModelKey(inputHash string, opts ModelKeyOpts) string

	// SolveKey is the key of the solver output for a data file.
	SolveKey(dznHash, solverID string) string

	// RenderKey is the key of a rendered topology image.
	RenderKey(topologyHash string, opts RenderKeyOpts) string
}

// DefaultKeyer produces "kind:sha256" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ModelKey implements Keyer.
func (DefaultKeyer) ModelKey(inputHash string, opts ModelKeyOpts) string {
	return hashKey("model", inputHash, opts)
}

// SolveKey implements Keyer.
func (DefaultKeyer) SolveKey(dznHash, solverID string) string {
	return hashKey("solve", dznHash, solverID)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(topologyHash string, opts RenderKeyOpts) string {
	return hashKey("render", topologyHash, opts)
}
