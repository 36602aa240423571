package serde

// ContextEngine provides the encoding of a context.
type ContextEngine interface {
	// GetFormat returns the format of the encoding.
	GetFormat() Format

	// Marshal returns the encoded message.
	Marshal(message interface{}) ([]byte, error)

	// Unmarshal populates the message with the data.
	Unmarshal(data []byte, message interface{}) error
}

// Context is given to the messages and the factories so that they find the
// engine of their format and encode their content.
type Context struct {
	ContextEngine
}

// NewContext returns a context using the engine.
func NewContext(engine ContextEngine) Context {
	return Context{ContextEngine: engine}
}
