package cache

// ScopedKeyer prefixes every key of an inner Keyer, giving each client of a
// shared backend its own namespace.
//
//	apiKeyer := NewScopedKeyer(NewDefaultKeyer(), "api:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// MeshKey implements [Keyer].
func (k *ScopedKeyer) MeshKey(meshHash string, opts TransformKeyOpts) string {
	return k.prefix + k.inner.MeshKey(meshHash, opts)
}

// RenderKey implements [Keyer].
func (k *ScopedKeyer) RenderKey(resultHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(resultHash, opts)
}
