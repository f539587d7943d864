package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.httpRequestDuration)
	assert.NotNil(t, collector.pipelineStageDuration)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.rankingDuration)
	assert.NotNil(t, collector.wsPublishTotal)
	assert.NotNil(t, collector.dedupDecisionsTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("GET", "/api/v1/search", 202, 100*time.Millisecond)
	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Equal(t, 1, count)

	collector.RecordHTTPRequest("GET", "/api/v1/search", 500, 50*time.Millisecond)
	newCount := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Equal(t, 2, newCount)
}

func TestCollector_RecordPipelineStage(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordPipelineStage("gate", 25*time.Millisecond)
	count := testutil.CollectAndCount(collector.pipelineStageDuration)
	assert.Equal(t, 1, count)
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordLLMRequest("gate", "success")
	collector.RecordLLMRequest("routeMapper", "timeout")

	count := testutil.CollectAndCount(collector.llmRequestsTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordRankingDuration(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordRankingDuration("GOOGLE", 5*time.Millisecond)
	count := testutil.CollectAndCount(collector.rankingDuration)
	assert.Equal(t, 1, count)
}

func TestCollector_RecordWSPublish(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordWSPublish("sent")
	collector.RecordWSPublish("failed")

	count := testutil.CollectAndCount(collector.wsPublishTotal)
	assert.Equal(t, 2, count)
}

func TestCollector_RecordDedupDecision(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordDedupDecision("REUSE")
	count := testutil.CollectAndCount(collector.dedupDecisionsTotal)
	assert.Equal(t, 1, count)
}

func TestCollector_NilReceiverIsSafe(t *testing.T) {
	var collector *Collector
	assert.NotPanics(t, func() {
		collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
		collector.RecordPipelineStage("gate", time.Millisecond)
		collector.RecordLLMRequest("gate", "success")
		collector.RecordRankingDuration("GOOGLE", time.Millisecond)
		collector.RecordWSPublish("sent")
		collector.RecordDedupDecision("NEW_JOB")
	})
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			collector.RecordHTTPRequest("GET", "/api/v1/search", 202, 100*time.Millisecond)
			collector.RecordLLMRequest("gate", "success")
			collector.RecordWSPublish("sent")
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, float64(10), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/api/v1/search", "2xx")))
	assert.Equal(t, float64(10), testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("gate", "success")))
	assert.Equal(t, float64(10), testutil.ToFloat64(collector.wsPublishTotal.WithLabelValues("sent")))
}

func TestCollector_MetricsRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	registry.MustRegister(collector.httpRequestsTotal)
	registry.MustRegister(collector.httpRequestDuration)

	collector.RecordHTTPRequest("GET", "/health", 200, 100*time.Millisecond)
	count := testutil.CollectAndCount(collector.httpRequestsTotal)
	assert.Equal(t, 1, count)
}
