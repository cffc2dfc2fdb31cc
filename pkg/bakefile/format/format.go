// Package format maintains the registry of output formats a bakefile can
// be generated into (GNU make, NMake, Watcom, ...).
//
// Formats are declared in FORMATS.yml manifest files found on the tool's
// search path:
//
//	formats:
//	  - id: gnu
//	    description: GNU toolchain makefiles (GNU make)
//	    default-filename: GNUmakefile
package format

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Info describes one output format.
type Info struct {
	// Name is the format identifier used on the command line.
	Name string

	// Description is a one-line human-readable summary.
	Description string

	// DefaultFile is the output filename used when none is configured.
	DefaultFile string
}

// ErrNotDescribed indicates a format declaration missing one of its
// required fields.
var ErrNotDescribed = errors.New("format not fully described")

// Registry is a thread-safe collection of format descriptions.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Info
}

// NewRegistry creates an empty format registry.
func NewRegistry() *Registry {
	return &Registry{
		formats: make(map[string]Info),
	}
}

// Register adds or updates a format. All Info fields are required.
func (r *Registry) Register(info Info) error {
	if info.Name == "" || info.Description == "" || info.DefaultFile == "" {
		return fmt.Errorf("%w: %+v", ErrNotDescribed, info)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.formats[info.Name] = info
	return nil
}

// Get returns the format description for name and whether it exists.
func (r *Registry) Get(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.formats[name]
	return info, ok
}

// IsValid returns true if name is a registered format.
func (r *Registry) IsValid(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.formats[name]
	return ok
}

// Names returns all registered format names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered formats.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.formats)
}

// Describe returns an aligned, sorted listing of the registered formats,
// suitable for --help style output.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formats))
	maxlen := 0
	for name := range r.formats {
		names = append(names, name)
		if len(name) > maxlen {
			maxlen = len(name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("available formats are:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "    %-*s   %s\n", maxlen, name, r.formats[name].Description)
	}
	return b.String()
}
