package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestClientInstrumentation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"count":0,"value":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, _ = client.FetchPlanSuites(context.Background(), "1")

	spans := exporter.GetSpans()
	assert.NotEmpty(t, spans, "Should have at least one span from tracer.Start")

	foundFetch := false
	foundHTTP := false
	for _, span := range spans {
		if span.Name == "FetchPlanSuites" {
			foundFetch = true
		}
		for _, attr := range span.Attributes {
			if attr.Key == "http.method" || attr.Key == "http.request.method" {
				foundHTTP = true
			}
		}
		if span.Name == "HTTP GET" || span.Name == "GET" {
			foundHTTP = true
		}
	}
	assert.True(t, foundFetch, "Should have a FetchPlanSuites span")
	assert.True(t, foundHTTP, "Should have an HTTP span from otelhttp")
}
