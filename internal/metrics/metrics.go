package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the application.
// It includes counters for chat activity and occurrence lifecycle events,
// and histograms for database query and report generation durations.
type Metrics struct {
	Updates            *prometheus.CounterVec   // Counter for inbound Telegram updates
	CommandReceived    *prometheus.CounterVec   // Counter for received commands and intents
	SentMessages       *prometheus.CounterVec   // Counter for sent messages
	NewTechnicians     prometheus.Counter       // Counter for completed registrations
	OccurrencesCreated *prometheus.CounterVec   // Counter for opened occurrences
	StatusChanges      *prometheus.CounterVec   // Counter for applied status changes
	CacheOps           *prometheus.CounterVec   // Counter for report cache operations
	DBQueryDuration    *prometheus.HistogramVec // Histogram for database query durations
	ReportGeneration   *prometheus.HistogramVec // Histogram for report generation durations
}

// NewMetrics creates a new Metrics instance with the provided Prometheus Registerer.
//
// Parameters:
//   - reg: A Prometheus Registerer used to register the metrics.
//
// Returns:
//   - A pointer to the newly created Metrics instance.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Updates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ruby_updates_received_total",
			Help: "Inbound Telegram updates",
		}, []string{"kind"}), // kind: text, callback
		CommandReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ruby_commands_received_total",
			Help: "Total number of handled commands and free-text intents",
		}, []string{"command"}), // command: /start, /ocorrencia, intent:greeting
		SentMessages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ruby_messages_sent_total",
			Help: "Output bot activity",
		}, []string{"type"}), // type: text, choices, file, error
		NewTechnicians: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ruby_new_technicians_total",
			Help: "Total number of technicians registered via /login",
		}),
		OccurrencesCreated: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ruby_occurrences_created_total",
			Help: "Total number of opened occurrences",
		}, []string{"category"}),
		StatusChanges: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ruby_occurrence_status_changes_total",
			Help: "Total number of occurrence status changes",
		}, []string{"status"}), // status: resolved, dismissed
		CacheOps: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ruby_cache_operations_total",
			Help: "Report cache operations",
		}, []string{"operation", "result"}), // operation: get, set, del; result: hit, miss, success, error
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ruby_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'insert_occurrence', 'update_status'
		ReportGeneration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "ruby_report_generation_duration_seconds",
			Help: "Duration of report excel generation.",
		}, []string{"language"}),
	}
}
