package bakefile

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vslavik/bakefile/pkg/bakefile/deps"
	"github.com/vslavik/bakefile/pkg/bakefile/format"
)

func testRegistry(t *testing.T) *format.Registry {
	t.Helper()
	r := format.NewRegistry()
	require.NoError(t, r.Register(format.Info{
		Name:        "gnu",
		Description: "GNU make",
		DefaultFile: "GNUmakefile",
	}))
	return r
}

func testModel(t *testing.T) *Makefile {
	t.Helper()
	m := New()
	m.AddMakeVar("CC", "gcc")
	require.NoError(t, m.SetVar("PREFIX", "/usr"))

	lib := NewTarget("mylib", "lib")
	lib.Vars["deps"] = "a.o b.o"
	lib.Vars["command"] = "$(CC) -shared -o mylib.so a.o b.o"
	m.AddTarget(lib)

	clean := NewTarget("clean", "phony")
	clean.Vars["command"] = "rm -f *.o"
	m.AddTarget(clean)
	return m
}

func TestGenerate(t *testing.T) {
	g := NewGenerator(testRegistry(t))
	m := testModel(t)

	var buf bytes.Buffer
	err := g.Generate(context.Background(), m, &buf, Request{
		Bakefile: "lib.bkl",
		Format:   "gnu",
		Output:   "GNUmakefile",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "# GNU make, generated by bakefile")
	assert.Contains(t, out, "CC = gcc")
	assert.Contains(t, out, "mylib: a.o b.o")
	assert.Contains(t, out, "\t$(CC) -shared -o mylib.so a.o b.o")
	assert.Contains(t, out, "clean:")
	assert.Contains(t, out, ".PHONY: clean")
	assert.NotContains(t, out, ".PHONY: clean mylib")
}

func TestGenerate_NoFormat(t *testing.T) {
	g := NewGenerator(testRegistry(t))

	err := g.Generate(context.Background(), New(), &bytes.Buffer{}, Request{})
	assert.ErrorIs(t, err, ErrNoFormat)
}

func TestGenerate_UnknownFormat(t *testing.T) {
	g := NewGenerator(testRegistry(t))

	err := g.Generate(context.Background(), New(), &bytes.Buffer{}, Request{Format: "borland"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format 'borland'")
	assert.Contains(t, err.Error(), "available formats are:")
}

func TestGenerate_FinalizesModel(t *testing.T) {
	g := NewGenerator(testRegistry(t))

	m := New()
	require.NoError(t, m.SetVar("EXT", ".so", Raw()))
	tgt := NewTarget("mylib", "lib")
	tgt.Vars["deps"] = "mylib$(EXT)"
	m.AddTarget(tgt)

	var buf bytes.Buffer
	err := g.Generate(context.Background(), m, &buf, Request{Format: "gnu"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "mylib: mylib.so")
}

func TestGenerate_RecordsDeps(t *testing.T) {
	store := deps.NewMemoryStore()
	defer store.Close()

	g := NewGenerator(testRegistry(t), WithDepsStore(store))

	m := testModel(t)
	m.AddDependency("common.bkl")

	var buf bytes.Buffer
	err := g.Generate(context.Background(), m, &buf, Request{
		Bakefile: "lib.bkl",
		Format:   "gnu",
		Output:   "GNUmakefile",
	})
	require.NoError(t, err)

	rec, err := store.Get("lib.bkl", "gnu")
	require.NoError(t, err)
	assert.Equal(t, []string{"common.bkl"}, rec.Deps)
	assert.Equal(t, []string{"GNUmakefile"}, rec.Outputs)
}

func TestGenerate_CycleSurfaces(t *testing.T) {
	g := NewGenerator(testRegistry(t))

	m := New()
	m.Vars["A"] = "x$(B)"
	m.Vars["B"] = "y$(A)"

	var buf bytes.Buffer
	err := g.Generate(context.Background(), m, &buf, Request{Format: "gnu"})
	require.Error(t, err)

	var cerr *CycleError
	assert.ErrorAs(t, err, &cerr)
}
