package expand

// Option configures an Expander.
type Option func(*Expander)

// WithTextFunc routes literal runs through text instead of copying them
// verbatim. The callback is only ever invoked for non-empty runs.
//
// Example:
//
//	exp := expand.New(code, expand.WithTextFunc(escape))
func WithTextFunc(text TextFunc) Option {
	return func(e *Expander) {
		e.text = text
	}
}
