package cache

// ScopedKeyer wraps a Keyer with a prefix, so several deployments can share
// one Redis instance without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "nocsched:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ModelKey generates a prefixed key for exported data files.
func (k *ScopedKeyer) ModelKey(inputHash string, opts ModelKeyOpts) string {
	return k.prefix + k.inner.ModelKey(inputHash, opts)
}

// SolveKey generates a prefixed key for solver outputs.
func (k *ScopedKeyer) SolveKey(dznHash, solverID string) string {
	return k.prefix + k.inner.SolveKey(dznHash, solverID)
}

// RenderKey generates a prefixed key for rendered images.
func (k *ScopedKeyer) RenderKey(topologyHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(topologyHash, opts)
}
