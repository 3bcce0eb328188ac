package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "femcircle_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "femcircle_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ListingTransitions counts listing lifecycle operations by outcome.
	ListingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "femcircle_listing_transitions_total",
		Help: "Listing lifecycle operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// Registrations counts account registrations by outcome.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "femcircle_registrations_total",
		Help: "Account registrations by outcome",
	}, []string{"outcome"})

	// SignIns counts sign-in attempts by outcome.
	SignIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "femcircle_sign_ins_total",
		Help: "Sign-in attempts by outcome",
	}, []string{"outcome"})
)

// Outcome labels shared by the domain counters.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// RecordTransition counts one listing operation.
func RecordTransition(operation string, applied bool, err error) {
	outcome := OutcomeApplied
	switch {
	case err != nil:
		outcome = OutcomeError
	case !applied:
		outcome = OutcomeRejected
	}
	ListingTransitions.WithLabelValues(operation, outcome).Inc()
}

const queryStartKey = "femcircle:query_started_at"

// RegisterQueryMetrics installs gorm callbacks that observe every statement
// into DatabaseQueryLatency.
func RegisterQueryMetrics(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		op := h.op
		if err := h.before("metrics:before_"+op, func(tx *gorm.DB) {
			tx.InstanceSet(queryStartKey, time.Now())
		}); err != nil {
			return err
		}
		if err := h.after("metrics:after_"+op, func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(op, table).Observe(time.Since(start).Seconds())
		}); err != nil {
			return err
		}
	}
	return nil
}
