package cluster

// StoredVectorSource resolves the unit-norm vector already stored for a
// vacancy identifier. Titles surviving the gate were embedded at build time,
// so the clusterer can reuse those vectors instead of calling the encoder.
type StoredVectorSource interface {
	EmbeddingByID(id string) ([]float32, bool)
}
