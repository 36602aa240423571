// Package loader persists the keys of the node. A key is stored hex encoded so
// that the files can be inspected and copied between nodes.
package loader

// Generator creates the binary form of a new key.
type Generator interface {
	Generate() ([]byte, error)
}

// Loader reads a key from a storage.
type Loader interface {
	// LoadOrCreate returns the stored key, or stores and returns a key from
	// the generator when there is none.
	LoadOrCreate(Generator) ([]byte, error)

	// Load returns the stored key.
	Load() ([]byte, error)
}
