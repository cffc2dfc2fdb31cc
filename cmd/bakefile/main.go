// Command bakefile generates native makefiles from YAML build
// descriptions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/vslavik/bakefile/pkg/bakefile"
	"github.com/vslavik/bakefile/pkg/bakefile/config"
	"github.com/vslavik/bakefile/pkg/bakefile/deps"
	"github.com/vslavik/bakefile/pkg/bakefile/format"
	"github.com/vslavik/bakefile/pkg/bakefile/observability"
)

func main() {
	app := &cli.Command{
		Name:  "bakefile",
		Usage: "native makefile generator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML or JSON settings file",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "deps-db",
				Usage: "path of the dependency-tracking database",
			},
		},
		Commands: []*cli.Command{
			generateCommand,
			formatsCommand,
			expandCommand,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bakefile: error: %v\n", err)
		os.Exit(1)
	}
}

var generateCommand = &cli.Command{
	Name:      "generate",
	Usage:     "generate a makefile from a build description",
	ArgsUsage: "<bakefile>",
	Action:    generateAction,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format to generate",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output file, '-' for stdout (default: the format's file)",
		},
		&cli.StringSliceFlag{
			Name:    "define",
			Aliases: []string{"D"},
			Usage:   "override a variable as name=value, repeatable",
		},
	},
}

var formatsCommand = &cli.Command{
	Name:   "formats",
	Usage:  "list the available output formats",
	Action: formatsAction,
}

var expandCommand = &cli.Command{
	Name:      "expand",
	Usage:     "expand $(...) expressions in a template, for debugging",
	ArgsUsage: "<template>",
	Action:    expandAction,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "define",
			Aliases: []string{"D"},
			Usage:   "define a variable as name=value, repeatable",
		},
	},
}

func generateAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("exactly one bakefile argument expected")
	}
	bakefilePath := cmd.Args().First()

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if f := cmd.String("format"); f != "" {
		settings.Format = f
	}
	if o := cmd.String("output"); o != "" {
		settings.OutputFile = o
	}
	defines, err := parseDefines(cmd.StringSlice("define"))
	if err != nil {
		return err
	}
	for name, value := range defines {
		settings.Defines[name] = value
	}

	logger := newLogger(settings.Verbose)

	registry, err := loadFormats(settings.SearchPaths)
	if err != nil {
		return err
	}

	m := bakefile.New(
		bakefile.WithLogger(logger),
		bakefile.WithUsageTracker(bakefile.NewUsageTracker()),
		bakefile.WithMetrics(observability.NewMetricsRecorder()),
		bakefile.WithSpans(observability.NewSpanManager()),
	)
	for name, value := range settings.Defines {
		m.Override(name, value)
	}
	if err := m.LoadBuildFile(bakefilePath); err != nil {
		return err
	}

	genOpts := []bakefile.GeneratorOption{
		bakefile.WithGeneratorLogger(logger),
		bakefile.WithSpanManager(observability.NewSpanManager()),
		bakefile.WithMetricsRecorder(observability.NewMetricsRecorder()),
	}
	if settings.DepsDB != "" {
		store, err := deps.NewSQLiteStore(settings.DepsDB)
		if err != nil {
			return fmt.Errorf("failed to open deps database: %w", err)
		}
		defer store.Close()
		genOpts = append(genOpts, bakefile.WithDepsStore(store))
	}
	gen := bakefile.NewGenerator(registry, genOpts...)

	outPath := settings.OutputFile
	if outPath == "" {
		info, ok := registry.Get(settings.Format)
		if ok {
			outPath = info.DefaultFile
		}
	}

	var out *os.File
	recorded := outPath
	if outPath == "-" || outPath == "" {
		out = os.Stdout
		recorded = ""
	} else {
		out, err = os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer out.Close()
	}

	return gen.Generate(ctx, m, out, bakefile.Request{
		Bakefile: bakefilePath,
		Format:   settings.Format,
		Output:   recorded,
	})
}

func formatsAction(_ context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	registry, err := loadFormats(settings.SearchPaths)
	if err != nil {
		return err
	}
	fmt.Print(registry.Describe())
	return nil
}

func expandAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("exactly one template argument expected")
	}

	defines, err := parseDefines(cmd.StringSlice("define"))
	if err != nil {
		return err
	}

	m := bakefile.New()
	for name, value := range defines {
		m.Override(name, value)
	}

	result, err := m.EvalExpr(cmd.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

// loadSettings resolves the tool configuration: built-in defaults,
// then the --config file, then command-line flags.
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	settings := config.DefaultSettings()

	if path := cmd.String("config"); path != "" {
		cfg, err := config.FromFile(path)
		if err != nil {
			return settings, fmt.Errorf("failed to load config: %w", err)
		}
		fileSettings := config.SettingsFrom(cfg)
		if fileSettings.Format != "" {
			settings.Format = fileSettings.Format
		}
		if fileSettings.OutputFile != "" {
			settings.OutputFile = fileSettings.OutputFile
		}
		if len(fileSettings.SearchPaths) > 0 {
			settings.SearchPaths = append(fileSettings.SearchPaths, settings.SearchPaths...)
		}
		for name, value := range fileSettings.Defines {
			settings.Defines[name] = value
		}
		if fileSettings.DepsDB != "" {
			settings.DepsDB = fileSettings.DepsDB
		}
		settings.Verbose = settings.Verbose || fileSettings.Verbose
	}

	if cmd.Bool("verbose") {
		settings.Verbose = true
	}
	if db := cmd.String("deps-db"); db != "" {
		settings.DepsDB = db
	}
	return settings, nil
}

// loadFormats registers the built-in formats and any manifests found on
// the search path.
func loadFormats(searchPaths []string) (*format.Registry, error) {
	registry := format.NewRegistry()
	for _, info := range builtinFormats {
		if err := registry.Register(info); err != nil {
			return nil, err
		}
	}
	if err := registry.LoadAll(searchPaths); err != nil {
		return nil, err
	}
	return registry, nil
}

var builtinFormats = []format.Info{
	{Name: "gnu", Description: "GNU make", DefaultFile: "GNUmakefile"},
	{Name: "mingw", Description: "MinGW make", DefaultFile: "makefile.gcc"},
	{Name: "msvc", Description: "MS Visual C++ nmake", DefaultFile: "makefile.vc"},
	{Name: "watcom", Description: "OpenWatcom make", DefaultFile: "makefile.wat"},
}

// parseDefines splits repeated name=value definitions.
func parseDefines(raw []string) (map[string]string, error) {
	defines := make(map[string]string, len(raw))
	for _, d := range raw {
		name, value, ok := strings.Cut(d, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid define '%s', expected name=value", d)
		}
		defines[name] = value
	}
	return defines, nil
}

// newLogger builds the CLI's structured logger.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
