package fake

import (
	"io"

	opentracing "github.com/opentracing/opentracing-go"
)

// NewTracerWithError is used to mock the tracer factory with an error.
func NewTracerWithError(string) (opentracing.Tracer, io.Closer, error) {
	return nil, nil, fakeErr
}

// NewNoopTracer is used to mock the tracer factory with an empty tracer.
func NewNoopTracer(string) (opentracing.Tracer, io.Closer, error) {
	return opentracing.NoopTracer{}, io.NopCloser(nil), nil
}
