// Package scope provides ordered, layered variable lookup.
//
// A Chain holds backing stores from most specific to least specific and
// answers lookups by querying them in order, stopping at the first hit.
// This is the merged-namespace used when evaluating $(...) expressions:
// per-call additions shadow target variables, which shadow global
// variables, which shadow option values.
package scope

// Store answers variable lookups for one layer of a chain.
type Store interface {
	// Lookup returns the value for name and whether it is defined
	// in this store.
	Lookup(name string) (string, bool)
}

// MapStore is a map-backed Store.
type MapStore map[string]string

// Lookup implements Store.
func (m MapStore) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// FuncStore adapts a function to the Store interface.
type FuncStore func(name string) (string, bool)

// Lookup implements Store.
func (f FuncStore) Lookup(name string) (string, bool) {
	return f(name)
}

// Chain is an ordered list of stores, most specific first. The zero
// value is an empty chain that resolves nothing.
//
// Chains are cheap values: Push returns a derived chain without copying
// the underlying stores, so building a per-evaluation chain on top of a
// shared base allocates one small slice.
type Chain struct {
	stores []Store
}

// NewChain creates a chain over stores, ordered most specific first.
// Nil stores are skipped.
func NewChain(stores ...Store) Chain {
	c := Chain{stores: make([]Store, 0, len(stores))}
	for _, s := range stores {
		if s != nil {
			c.stores = append(c.stores, s)
		}
	}
	return c
}

// Push returns a chain with s as the new most specific layer. The
// receiver is unchanged. Pushing nil returns the receiver as-is.
func (c Chain) Push(s Store) Chain {
	if s == nil {
		return c
	}
	stores := make([]Store, 0, len(c.stores)+1)
	stores = append(stores, s)
	stores = append(stores, c.stores...)
	return Chain{stores: stores}
}

// Lookup queries the layers in order and returns the first hit.
func (c Chain) Lookup(name string) (string, bool) {
	for _, s := range c.stores {
		if v, ok := s.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}

// Len returns the number of layers.
func (c Chain) Len() int {
	return len(c.stores)
}

// Snapshot flattens the chain into a single map. Only MapStore layers
// contribute; layers are applied least specific first so that more
// specific layers win, matching Lookup order.
func (c Chain) Snapshot() map[string]string {
	merged := make(map[string]string)
	for i := len(c.stores) - 1; i >= 0; i-- {
		m, ok := c.stores[i].(MapStore)
		if !ok {
			continue
		}
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
