package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lottery_test_total",
		Help: "test counter",
	})
	counter.Add(3)

	handler, err := NewHandler(counter)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "lottery_test_total 3")

	_, err = NewHandler(counter, counter)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to register collector: ")
}

func TestNewHandler_Default(t *testing.T) {
	handler, err := NewHandler()
	require.NoError(t, err)
	require.NotNil(t, handler)
}
