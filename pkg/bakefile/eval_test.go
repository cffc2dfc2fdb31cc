package bakefile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vslavik/bakefile/pkg/bakefile/expand"
)

func TestEvalExpr_VariableLookup(t *testing.T) {
	m := New()
	require.NoError(t, m.SetVar("CC", "gcc"))
	require.NoError(t, m.SetVar("DEBUG", "1"))

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"plain text", "no markers here", "no markers here"},
		{"single variable", "$(CC)", "gcc"},
		{"embedded", "CC is $(CC), debug=$(DEBUG)", "CC is gcc, debug=1"},
		{"adjacent", "$(CC)$(DEBUG)", "gcc1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.EvalExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalExpr_Undefined(t *testing.T) {
	m := New()

	_, err := m.EvalExpr("$(NOPE)")
	require.Error(t, err)
	assert.True(t, IsErrUndefined(err))
}

func TestEvalExpr_Malformed(t *testing.T) {
	m := New()

	_, err := m.EvalExpr("broken $(CC")
	require.Error(t, err)

	var merr *expand.MalformedExpressionError
	assert.ErrorAs(t, err, &merr)
}

func TestEvalExpr_OptionDefault(t *testing.T) {
	m := New()
	m.AddOption(&Option{Name: "SHARED", Default: "0", Values: []string{"0", "1"}})

	got, err := m.EvalExpr("$(SHARED)")
	require.NoError(t, err)
	assert.Equal(t, "0", got)

	// A plain variable of the same name shadows the option default.
	m.Vars["SHARED"] = "1"
	got, err = m.EvalExpr("$(SHARED)")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestEvalExpr_WithoutOptions(t *testing.T) {
	m := New()
	m.AddOption(&Option{Name: "SHARED", Default: "0"})

	_, err := m.EvalExpr("$(SHARED)", WithoutOptions())
	require.Error(t, err)
	assert.True(t, IsErrUndefined(err))
}

func TestEvalExpr_CondVar(t *testing.T) {
	m := New()
	m.AddOption(&Option{Name: "SHARED", Default: "1"})
	m.AddCondVar(&CondVar{
		Name: "LIBEXT",
		Values: []CondValue{
			{Cond: "SHARED=='1'", Value: ".so"},
			{Cond: "SHARED=='0'", Value: ".a"},
		},
	})

	got, err := m.EvalExpr("lib$(LIBEXT)")
	require.NoError(t, err)
	assert.Equal(t, "lib.so", got)

	m.Options["SHARED"].Default = "0"
	got, err = m.EvalExpr("lib$(LIBEXT)")
	require.NoError(t, err)
	assert.Equal(t, "lib.a", got)
}

func TestEvalExpr_ConditionFallback(t *testing.T) {
	m := New()
	require.NoError(t, m.SetVar("PLATFORM", "unix"))

	got, err := m.EvalExpr("$(PLATFORM=='unix')")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	got, err = m.EvalExpr("$(PLATFORM=='win32')")
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestEvalExpr_ExpressionError(t *testing.T) {
	m := New()

	_, err := m.EvalExpr("$(UNKNOWN=='x')")
	require.Error(t, err)

	var eerr *ExpressionError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "UNKNOWN=='x'", eerr.Code)
}

func TestEvalExpr_AddVarsInnermost(t *testing.T) {
	m := New()
	require.NoError(t, m.SetVar("V", "global"))

	got, err := m.EvalExpr("$(V)", WithAddVars(map[string]string{"V": "local"}))
	require.NoError(t, err)
	assert.Equal(t, "local", got)
}

func TestEvalExpr_TargetShadowsGlobal(t *testing.T) {
	m := New()
	require.NoError(t, m.SetVar("NAME", "global"))

	tgt := NewTarget("app", "exe")
	tgt.Vars["NAME"] = "app"

	got, err := m.EvalExpr("$(NAME)", OnTarget(tgt))
	require.NoError(t, err)
	assert.Equal(t, "app", got)
}

func TestEvalCondition(t *testing.T) {
	m := New()
	require.NoError(t, m.SetVar("PLATFORM", "unix"))
	require.NoError(t, m.SetVar("DEBUG", "1"))

	tests := []struct {
		cond string
		want bool
	}{
		{"PLATFORM=='unix'", true},
		{"PLATFORM!='unix'", false},
		{"PLATFORM=='unix' and DEBUG=='1'", true},
		{"PLATFORM=='win32' or DEBUG=='1'", true},
		{"not PLATFORM=='unix'", false},
	}

	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			got, err := m.EvalCondition(tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalCondition_OptionsOnRequest(t *testing.T) {
	m := New()
	m.AddOption(&Option{Name: "SHARED", Default: "1"})

	_, err := m.EvalCondition("SHARED=='1'")
	require.Error(t, err, "options are invisible to conditions by default")

	got, err := m.EvalCondition("SHARED=='1'", WithOptions())
	require.NoError(t, err)
	assert.True(t, got)
}

func TestUsageTracker(t *testing.T) {
	tracker := NewUsageTracker()
	m := New(WithUsageTracker(tracker))

	require.NoError(t, m.SetVar("V", "val"))
	m.AddOption(&Option{Name: "OPT", Default: "d"})
	m.AddMakeVar("MK", "raw")

	_, err := m.EvalExpr("$(V) $(OPT) $(MK) $(V=='val')")
	require.NoError(t, err)

	assert.Equal(t, 1, tracker.Vars)
	assert.Equal(t, 1, tracker.OptionsAndCondVars)
	assert.Equal(t, 1, tracker.MakeVars)
	assert.Equal(t, 1, tracker.Exprs)
	assert.True(t, tracker.Coverage["OPT"])
	assert.True(t, tracker.Coverage["MK"])
	assert.False(t, tracker.OnlyOptions())

	tracker.Reset(false)
	assert.Equal(t, 0, tracker.Vars)
	assert.True(t, tracker.Coverage["OPT"], "coverage survives a counter reset")

	tracker.Reset(true)
	assert.Empty(t, tracker.Coverage)
}

// recordingMetrics counts recorder calls for assertions.
type recordingMetrics struct {
	expansions int
	errors     int
	malformed  int
}

func (r *recordingMetrics) RecordExpansion(_ context.Context, _ time.Duration, err error) {
	r.expansions++
	if err != nil {
		r.errors++
	}
}

func (r *recordingMetrics) RecordGeneration(context.Context, string, bool, time.Duration) {}

func (r *recordingMetrics) RecordMalformed(context.Context) {
	r.malformed++
}

func TestEvalExpr_RecordsMetrics(t *testing.T) {
	rec := &recordingMetrics{}
	m := New(WithMetrics(rec))
	require.NoError(t, m.SetVar("V", "x"))

	_, err := m.EvalExpr("$(V)")
	require.NoError(t, err)

	_, err = m.EvalExpr("broken $(V")
	require.Error(t, err)

	// SetVar's own evaluation counts too.
	assert.Equal(t, 3, rec.expansions)
	assert.Equal(t, 1, rec.errors)
	assert.Equal(t, 1, rec.malformed)
}

func TestUsageTracker_OnlyOptions(t *testing.T) {
	tracker := NewUsageTracker()
	m := New(WithUsageTracker(tracker))
	m.AddOption(&Option{Name: "OPT", Default: "d"})

	_, err := m.EvalExpr("$(OPT)")
	require.NoError(t, err)
	assert.True(t, tracker.OnlyOptions())
}
