// Package deps tracks the input dependencies and generated outputs of
// processed bakefiles, persisted between runs so that wrapper tools can
// decide which makefiles need regenerating.
package deps

import "errors"

// Record lists what one (bakefile, format) pair read and wrote.
type Record struct {
	// Deps are files the bakefile's processing depended on.
	Deps []string

	// Outputs are files the processing created or updated.
	Outputs []string
}

// Entry identifies one record in a store.
type Entry struct {
	Bakefile string
	Format   string
}

// Store persists dependency records.
// Implementations must be safe for concurrent use.
type Store interface {
	// AddDependency records that processing bakefile for format read
	// dependency. Recording a bakefile as its own dependency is a no-op.
	AddDependency(bakefile, format, dependency string) error

	// AddOutput records that processing bakefile for format wrote output.
	AddOutput(bakefile, format, output string) error

	// Get retrieves the record for a (bakefile, format) pair.
	// Returns ErrNotFound if nothing was recorded.
	Get(bakefile, format string) (Record, error)

	// List returns all recorded (bakefile, format) pairs, ordered by
	// bakefile then format. Returns an empty slice (not an error) for
	// an empty store.
	List() ([]Entry, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no record exists for the pair.
	ErrNotFound = errors.New("dependency record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("dependency store closed")
)
