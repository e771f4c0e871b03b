package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler != nil {
			handler.ServeHTTP(c.Writer, c.Request)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "metrics handler not initialized",
			})
		}
	}
}

// Analysis outcomes recorded on analyses_total.
const (
	OutcomeSaved        = "saved"
	OutcomeUnsaved      = "unsaved"
	OutcomeMalformed    = "malformed"
	OutcomeUnauthorized = "unauthorized"
	OutcomeTimeout      = "timeout"
	OutcomeUpstream     = "upstream_error"
)

// Completions take seconds, far above the default HTTP-oriented buckets.
var modelLatencyBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60}

// AnalysisMetrics holds the instruments of the analysis pipeline.
type AnalysisMetrics struct {
	analyses     metric.Int64Counter
	modelLatency metric.Float64Histogram
}

func NewAnalysisMetrics(meter metric.Meter) (*AnalysisMetrics, error) {
	analyses, err := meter.Int64Counter("analyses_total",
		metric.WithDescription("Post analyses by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyses counter: %w", err)
	}

	latency, err := meter.Float64Histogram("model_request_duration_seconds",
		metric.WithDescription("Latency of chat completion calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(modelLatencyBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model latency histogram: %w", err)
	}

	return &AnalysisMetrics{analyses: analyses, modelLatency: latency}, nil
}

func (m *AnalysisMetrics) RecordOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.analyses.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AnalysisMetrics) RecordModelLatency(ctx context.Context, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.modelLatency.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Bool("success", ok)))
}
