/*
Package expand implements the $(...) expression-expansion engine at the
heart of bakefile.

# Overview

A template is plain text with embedded $(expression) markers:

	"lib$(LIBNAME)$(DLLEXT)"

expand splits the template into literal runs and code runs in a single
left-to-right pass, hands each run to a caller-supplied callback, and
concatenates the results. What a code run means is entirely up to the
code callback: variable lookup, function calls, condition evaluation.
The engine itself knows nothing beyond brackets and quotes.

# Basic Usage

	lookup := func(_ *expand.Context, code string) (string, error) {
	    val, ok := vars[code]
	    if !ok {
	        return "", fmt.Errorf("unknown variable %q", code)
	    }
	    return val, nil
	}

	result, err := expand.Expand("lib$(LIBNAME).a", lookup)

# Brackets and Quotes

Inside a code run, parentheses nest:

	"$(substr(FILE, 0, 3))"    // one code run: substr(FILE, 0, 3)

and quoted regions hide parentheses from the bracket counter:

	"$(wrap(')'))"             // the quoted ) does not close the run

Only parentheses and the two quote characters are special, and only
inside a code run. A '$' not followed by '(' is literal text.

# Failure

Expansion is all-or-nothing. An unterminated code run yields a
*MalformedExpressionError; a failing callback yields a *CallbackError
wrapping the original error. No partial output is ever returned and no
fallback value is substituted.

# Reentrancy

Expanders hold no mutable state. Each Expand call owns its own output
buffer, so concurrent calls are safe and callbacks may recursively call
back into the expander (nested expansion); depth is bounded only by the
call stack.
*/
package expand
