package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentguard_pipeline_runs_total",
			Help: "Pipeline runs by terminal status",
		},
		[]string{"status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rentguard_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	StageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentguard_stage_failures_total",
			Help: "Stage failures by stage name",
		},
		[]string{"stage"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentguard_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	RedactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rentguard_redactions_total",
			Help: "Total PII redactions applied",
		},
	)

	OverallScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rentguard_overall_score",
			Help:    "Distribution of final report scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ReportCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentguard_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	ReportCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentguard_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rentguard_documents_processed_total",
			Help: "Total documents that completed the pipeline",
		},
	)
)

func Init() {
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageFailures)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(RedactionsTotal)
	prometheus.MustRegister(OverallScore)
	prometheus.MustRegister(ReportCacheHits)
	prometheus.MustRegister(ReportCacheMisses)
	prometheus.MustRegister(DocumentsProcessed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
