package discover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	suggestionsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discover_suggestions_emitted_total",
		Help: "Number of suggestion records emitted to callers.",
	})

	guardrailRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discover_guardrail_rejections_total",
		Help: "Number of enrichment candidates dropped by the spatial guardrail.",
	})

	enrichmentQuotaHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discover_enrichment_quota_hits_total",
		Help: "Number of invocations where the web search quota was exhausted.",
	})

	rankerContractViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discover_ranker_contract_violations_total",
		Help: "Number of ranker selections discarded for referencing unknown candidate ids.",
	})
)
