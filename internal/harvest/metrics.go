package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// profilesScraped counts profiles extracted successfully.
	profilesScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_profiles_scraped_total",
		Help: "The total number of profile pages extracted successfully.",
	})
	// profilesFailed counts profiles that exhausted their retry budget.
	profilesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_profiles_failed_total",
		Help: "The total number of profiles abandoned after retry exhaustion.",
	})
	// fetchAttempts counts individual fetch attempts, including retries.
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_attempts_total",
		Help: "The total number of profile fetch attempts dispatched.",
	})
	// fetchRetries counts second attempts after a first-attempt failure.
	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_fetch_retries_total",
		Help: "The total number of profile fetches that were retried.",
	})
	// fetchInFlight tracks concurrently running fetch-and-extract operations.
	fetchInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvester_fetch_in_flight",
		Help: "The number of fetch operations currently holding a limiter slot.",
	})
	// discoveryAttempts counts scroll-and-settle passes over the directory.
	discoveryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_discovery_attempts_total",
		Help: "The total number of lazy-load scroll attempts during discovery.",
	})
	// checkpointWrites counts successful interim checkpoint writes.
	checkpointWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_checkpoint_writes_total",
		Help: "The total number of interim checkpoints written.",
	})
	// checkpointSkips counts checkpoints skipped because the sink was busy.
	checkpointSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_checkpoint_skips_total",
		Help: "The total number of checkpoints skipped due to write failures.",
	})
)
