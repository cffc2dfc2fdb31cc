package expand

import (
	"strings"
)

// CodeFunc evaluates one code run. It receives the exact text between the
// matched "$(" and ")" delimiters, with the delimiters excluded.
type CodeFunc func(ctx *Context, code string) (string, error)

// TextFunc post-processes one literal run. It is never invoked for
// zero-length runs.
type TextFunc func(ctx *Context, text string) (string, error)

// Context carries caller state through an expansion. The expander never
// interprets any of its fields; they are forwarded verbatim to every
// callback invocation.
type Context struct {
	// Args is an arbitrary argument bundle for the callbacks.
	Args any

	// UseOptions selects whether option values participate in lookups.
	UseOptions bool

	// Target identifies the target being processed, if any.
	Target any

	// Extra is an auxiliary mapping consulted by the code callback.
	Extra map[string]string
}

// Expander splits a template into literal runs and $(...) code runs,
// delegates each run to the configured callbacks, and reassembles the
// result.
//
// An Expander holds no mutable state and is safe for concurrent use;
// every Expand call owns its output buffer. Callbacks are free to call
// back into the expander recursively.
type Expander struct {
	code CodeFunc
	text TextFunc
}

// New creates an Expander that evaluates code runs with code.
//
// By default literal runs are copied to the output verbatim; configure
// WithTextFunc to post-process them instead.
func New(code CodeFunc, opts ...Option) *Expander {
	e := &Expander{code: code}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand scans template left to right in a single pass and returns the
// expanded result.
//
// Inside a code run, an unquoted "(" deepens bracket nesting and an
// unquoted ")" closes it; the run ends when nesting returns to the level
// of the opening "$(". A "'" or '"' opens a quoted region whose contents,
// parentheses included, are consumed verbatim until the same quote
// character recurs. Quotes do not nest.
//
// The text callback is invoked only for non-empty literal runs, including
// the trailing run after the last code run. Adjacent code runs therefore
// produce no text callback between them, and a template that is all
// literal text produces exactly one.
//
// On failure no partial output is returned: an unterminated code run
// (including one whose quoted region reaches end of input) yields a
// *MalformedExpressionError, and a callback failure yields a
// *CallbackError wrapping the callback's error.
func (e *Expander) Expand(ctx *Context, template string) (string, error) {
	if e.code == nil {
		return "", ErrNoCodeFunc
	}

	var out strings.Builder
	out.Grow(len(template))

	n := len(template)
	textStart := 0
	i := 0
	for i+1 < n {
		if template[i] != '$' || template[i+1] != '(' {
			i++
			continue
		}

		if i > textStart {
			if err := e.emitText(ctx, &out, template, textStart, i); err != nil {
				return "", err
			}
		}

		markerStart := i
		i += 2
		codeStart := i
		depth := 1

	scan:
		for i < n {
			switch c := template[i]; c {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					break scan
				}
			case '\'', '"':
				// Quoted region: consumed verbatim, invisible to the
				// depth counter. An unclosed quote runs to end of input
				// and falls out as an unterminated code run below.
				i++
				for i < n && template[i] != c {
					i++
				}
				if i == n {
					break scan
				}
			}
			i++
		}

		if depth != 0 {
			return "", &MalformedExpressionError{Template: template, Offset: markerStart}
		}

		code := template[codeStart:i]
		val, err := e.code(ctx, code)
		if err != nil {
			return "", &CallbackError{Run: CodeRun, Input: code, Err: err}
		}
		out.WriteString(val)

		// Step past the closing ")".
		i++
		textStart = i
	}

	if textStart < n {
		if err := e.emitText(ctx, &out, template, textStart, n); err != nil {
			return "", err
		}
	}

	return out.String(), nil
}

// emitText appends the literal run template[start:end] to out, routing it
// through the text callback when one is configured.
func (e *Expander) emitText(ctx *Context, out *strings.Builder, template string, start, end int) error {
	text := template[start:end]
	if e.text == nil {
		out.WriteString(text)
		return nil
	}
	val, err := e.text(ctx, text)
	if err != nil {
		return &CallbackError{Run: TextRun, Input: text, Err: err}
	}
	out.WriteString(val)
	return nil
}

// defaultContext is passed by the package-level Expand when the caller
// supplies no context of its own.
var defaultContext = &Context{UseOptions: true}

// Expand expands template using a throwaway expander with no text
// callback. Convenient for one-shot expansions:
//
//	result, err := expand.Expand("prefix $(VAR) suffix", lookup)
func Expand(template string, code CodeFunc) (string, error) {
	return New(code).Expand(defaultContext, template)
}

// Echo is a CodeFunc that returns the code text unchanged. Useful in
// tests and for inspecting which code runs a template contains.
func Echo(_ *Context, code string) (string, error) {
	return code, nil
}

// CodeRuns returns the code runs of template in left-to-right order
// without evaluating them.
func CodeRuns(template string) ([]string, error) {
	var runs []string
	collect := func(_ *Context, code string) (string, error) {
		runs = append(runs, code)
		return "", nil
	}
	if _, err := New(collect).Expand(nil, template); err != nil {
		return nil, err
	}
	return runs, nil
}

// HasMarkers reports whether template contains at least one "$(" marker.
// It does not validate that the marker is terminated.
func HasMarkers(template string) bool {
	return strings.Contains(template, "$(")
}
