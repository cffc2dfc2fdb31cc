package bakefile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vslavik/bakefile/pkg/bakefile/deps"
	"github.com/vslavik/bakefile/pkg/bakefile/format"
	"github.com/vslavik/bakefile/pkg/bakefile/observability"
)

// Request describes one generation run.
type Request struct {
	// Bakefile is the path of the build description being processed.
	Bakefile string

	// Format is the output format name, registered in the generator's
	// registry.
	Format string

	// Output is the path the caller writes the result to, recorded in
	// the dependency store. May be empty for stdout.
	Output string
}

// Generator turns a finalized Makefile into concrete output in a
// registered format, with tracing, metrics, and dependency recording
// around the run.
type Generator struct {
	formats *format.Registry
	deps    deps.Store
	spans   observability.SpanManager
	metrics observability.MetricsRecorder
	logger  *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithDepsStore records processed bakefiles and written outputs in s.
func WithDepsStore(s deps.Store) GeneratorOption {
	return func(g *Generator) {
		g.deps = s
	}
}

// WithSpanManager replaces the no-op span manager.
func WithSpanManager(sm observability.SpanManager) GeneratorOption {
	return func(g *Generator) {
		g.spans = sm
	}
}

// WithMetricsRecorder replaces the no-op metrics recorder.
func WithMetricsRecorder(mr observability.MetricsRecorder) GeneratorOption {
	return func(g *Generator) {
		g.metrics = mr
	}
}

// WithGeneratorLogger attaches a structured logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates a generator over the given format registry.
// Observability defaults to no-ops.
func NewGenerator(formats *format.Registry, opts ...GeneratorOption) *Generator {
	g := &Generator{
		formats: formats,
		spans:   observability.NoopSpanManager{},
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate finalizes m and writes it to w in the requested format. The
// format must be registered; an unknown name fails with the list of
// available formats in the error text.
func (g *Generator) Generate(ctx context.Context, m *Makefile, w io.Writer, req Request) (err error) {
	if req.Format == "" {
		return ErrNoFormat
	}
	info, ok := g.formats.Get(req.Format)
	if !ok {
		return fmt.Errorf("unknown output format '%s'\n%s", req.Format, g.formats.Describe())
	}

	logger := observability.EnrichLogger(g.logger, m.RunID, req.Bakefile, req.Format)
	observability.LogGenerateStart(logger, m.RunID, req.Bakefile, req.Format)

	ctx, span := g.spans.StartGenerateSpan(ctx, req.Bakefile, req.Format, m.RunID)
	start := time.Now()
	defer func() {
		g.spans.EndSpanWithError(span, err)
		g.metrics.RecordGeneration(ctx, req.Format, err == nil, time.Since(start))
		if err != nil {
			observability.LogGenerateError(logger, m.RunID, err, float64(time.Since(start).Milliseconds()))
		}
	}()

	if err = m.Finalize(ctx); err != nil {
		return err
	}
	g.spans.AddSpanEvent(ctx, "finalized")

	if err = writeMakefile(w, m, info); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if err = g.recordDeps(m, req); err != nil {
		return err
	}

	observability.LogGenerateComplete(logger, m.RunID,
		float64(time.Since(start).Milliseconds()), len(m.Vars), len(m.Targets))
	return nil
}

// recordDeps stores the run's inputs and outputs for later
// regeneration checks.
func (g *Generator) recordDeps(m *Makefile, req Request) error {
	if g.deps == nil || req.Bakefile == "" {
		return nil
	}
	if req.Output != "" {
		if err := g.deps.AddOutput(req.Bakefile, req.Format, req.Output); err != nil {
			return fmt.Errorf("failed to record output: %w", err)
		}
	}
	for _, dep := range m.Deps {
		if err := g.deps.AddDependency(req.Bakefile, req.Format, dep); err != nil {
			return fmt.Errorf("failed to record dependency: %w", err)
		}
	}
	return nil
}

// writeMakefile emits the finalized model in make syntax: make
// variables first, then one rule per target. Target variables named
// "deps" and "command" become the rule's prerequisites and recipe.
func writeMakefile(w io.Writer, m *Makefile, info format.Info) error {
	if _, err := fmt.Fprintf(w, "# %s, generated by bakefile, do not edit\n", info.Description); err != nil {
		return err
	}

	names := sortedKeys(m.MakeVars)
	if len(names) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "%s = %s\n", name, m.MakeVars[name]); err != nil {
				return err
			}
		}
	}

	for _, id := range sortedTargetIDs(m.Targets) {
		t := m.Targets[id]
		if _, err := fmt.Fprintf(w, "\n%s: %s\n", t.ID, t.Vars["deps"]); err != nil {
			return err
		}
		if cmd, ok := t.Vars["command"]; ok && cmd != "" {
			if _, err := fmt.Fprintf(w, "\t%s\n", cmd); err != nil {
				return err
			}
		}
	}

	var phony []string
	for _, id := range sortedTargetIDs(m.Targets) {
		if m.Targets[id].Type == "phony" {
			phony = append(phony, id)
		}
	}
	if len(phony) > 0 {
		if _, err := fmt.Fprintf(w, "\n.PHONY: %s\n", strings.Join(phony, " ")); err != nil {
			return err
		}
	}
	return nil
}
