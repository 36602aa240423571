package fake

import "go.dedis.ch/lottery/serde"

const (
	// GoodFormat is the format of the contexts expected to succeed.
	GoodFormat = serde.Format("FAKE")

	// BadFormat is the format of the contexts expected to fail.
	BadFormat = serde.Format("BAD_FAKE")
)

// Message is an empty message.
//
// - implements serde.Message
type Message struct{}

// Serialize implements serde.Message.
func (m Message) Serialize(ctx serde.Context) ([]byte, error) {
	return ctx.Marshal(struct{}{})
}

// GetFakeFormatValue returns the data encoded by the fake format.
func GetFakeFormatValue() []byte {
	return []byte("fake format")
}

// Format is a format engine decoding every data into Msg.
//
// - implements serde.FormatEngine
type Format struct {
	err  error
	Msg  serde.Message
	Call *Call
}

// NewBadFormat returns a format failing to encode and to decode.
func NewBadFormat() Format {
	return Format{err: fakeErr}
}

// Encode implements serde.FormatEngine.
func (f Format) Encode(ctx serde.Context, m serde.Message) ([]byte, error) {
	f.Call.Add(ctx, m)

	return GetFakeFormatValue(), f.err
}

// Decode implements serde.FormatEngine.
func (f Format) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	f.Call.Add(ctx, data)

	return f.Msg, f.err
}

// contextEngine marshals everything to an empty object.
//
// - implements serde.ContextEngine
type contextEngine struct {
	format serde.Format
	err    error
}

// NewContext returns a context of the good format.
func NewContext() serde.Context {
	return serde.NewContext(contextEngine{format: GoodFormat})
}

// NewBadContext returns a context of the bad format, failing to marshal and
// to unmarshal.
func NewBadContext() serde.Context {
	return serde.NewContext(contextEngine{format: BadFormat, err: fakeErr})
}

// NewContextWithFormat returns a context of the format.
func NewContextWithFormat(f serde.Format) serde.Context {
	return serde.NewContext(contextEngine{format: f})
}

// GetFormat implements serde.ContextEngine.
func (ctx contextEngine) GetFormat() serde.Format {
	return ctx.format
}

// Marshal implements serde.ContextEngine.
func (ctx contextEngine) Marshal(interface{}) ([]byte, error) {
	return []byte("{}"), ctx.err
}

// Unmarshal implements serde.ContextEngine.
func (ctx contextEngine) Unmarshal([]byte, interface{}) error {
	return ctx.err
}
