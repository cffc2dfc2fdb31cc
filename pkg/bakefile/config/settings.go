package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvSearchPath is the environment variable listing extra directories to
// search for format manifests and included makefiles, separated by the
// platform's path-list separator.
const EnvSearchPath = "BAKEFILE_PATHS"

// Settings is the resolved tool configuration driving a generation run.
type Settings struct {
	// Format names the output format to generate.
	Format string

	// OutputFile overrides the format's default output filename.
	OutputFile string

	// SearchPaths are the directories searched for format manifests,
	// most specific first.
	SearchPaths []string

	// Defines are -D style variable overrides; they become override
	// variables that SetVar cannot change.
	Defines map[string]string

	// DepsDB is the path of the dependency-tracking database, empty to
	// disable tracking.
	DepsDB string

	// Verbose enables debug-level logging.
	Verbose bool
}

// DefaultSettings returns settings with the search path assembled from
// EnvSearchPath plus the rules/ and output/ directories next to the
// executable.
func DefaultSettings() Settings {
	s := Settings{
		Defines: make(map[string]string),
	}

	if env := os.Getenv(EnvSearchPath); env != "" {
		for _, p := range strings.Split(env, string(os.PathListSeparator)) {
			if p != "" {
				s.SearchPaths = append(s.SearchPaths, p)
			}
		}
	}

	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		s.SearchPaths = append(s.SearchPaths,
			filepath.Join(base, "..", "rules"),
			filepath.Join(base, "..", "output"),
		)
	}

	return s
}

// SettingsFrom overlays values from cfg onto the defaults.
//
// Recognized keys: format, output, search_paths, defines, deps_db,
// verbose.
func SettingsFrom(cfg Config) Settings {
	s := DefaultSettings()
	s.Format = cfg.String("format", s.Format)
	s.OutputFile = cfg.String("output", s.OutputFile)
	s.DepsDB = cfg.String("deps_db", s.DepsDB)
	s.Verbose = cfg.Bool("verbose", s.Verbose)

	if extra := cfg.StringSlice("search_paths", nil); extra != nil {
		s.SearchPaths = append(extra, s.SearchPaths...)
	}
	for k, v := range cfg.StringMap("defines", nil) {
		s.Defines[k] = v
	}
	return s
}
