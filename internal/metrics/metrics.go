package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GenerateRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadgenius_generate_runs_total",
		Help: "Total post generation runs",
	})
	GenerateErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadgenius_generate_errors_total",
		Help: "Generation runs that failed at the draft call",
	})
	GenerateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadgenius_generate_duration_seconds",
		Help:    "Generation run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	LLMCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgenius_llm_calls_total",
		Help: "Outbound generation calls by pass and outcome",
	}, []string{"pass", "outcome"})
	ParseStrategy = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgenius_parse_strategy_total",
		Help: "Which parse strategy produced the records",
	}, []string{"strategy"})
	RewriteFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgenius_rewrite_fallbacks_total",
		Help: "Rewrites that kept the original draft",
	}, []string{"reason"})
	Backfilled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "threadgenius_backfilled_posts_total",
		Help: "Placeholder posts added to reach the requested count",
	})
	PostScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadgenius_post_score",
		Help:    "Distribution of final post scores",
		Buckets: prometheus.LinearBuckets(0, 10, 12),
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgenius_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgenius_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgenius_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
	InsightSyncs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threadgenius_insight_syncs_total",
		Help: "Insight fetches for published posts by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(GenerateRuns, GenerateErrors, GenerateDuration, LLMCalls, ParseStrategy,
		RewriteFallbacks, Backfilled, PostScores, APIRetries, CommandRuns, CommandErrors, InsightSyncs)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveGenerateDuration records a run duration.
func ObserveGenerateDuration(start time.Time) {
	GenerateDuration.Observe(time.Since(start).Seconds())
}

// IncLLMCall counts one outbound generation call.
func IncLLMCall(pass, outcome string) { LLMCalls.WithLabelValues(pass, outcome).Inc() }

// IncParseStrategy counts which parse strategy won.
func IncParseStrategy(strategy string) { ParseStrategy.WithLabelValues(strategy).Inc() }

// IncRewriteFallback counts a rewrite that degraded to the original draft.
func IncRewriteFallback(reason string) { RewriteFallbacks.WithLabelValues(reason).Inc() }

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
