package metrics

// Sizer reports how many records a store currently holds.
type Sizer interface {
	Len() int
}

// SizerFunc adapts a plain counting function to the Sizer interface.
type SizerFunc func() int

// Len calls f.
func (f SizerFunc) Len() int {
	return f()
}

// RecordStoreSizes updates the in-memory store size metrics.
func RecordStoreSizes(stores map[string]Sizer) {
	for kind, s := range stores {
		StoreEntities.WithLabelValues(kind).Set(float64(s.Len()))
	}
}
