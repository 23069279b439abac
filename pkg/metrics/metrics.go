package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "todolist", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "todolist", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// TodoOperations counts todo operations by operation (list|create|update|delete|show)
	// and outcome (ok|invalid|not_found|error).
	TodoOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "todolist", Name: "todo_operations_total", Help: "Todo operations by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "todolist", Name: "login_attempts_total", Help: "Login attempts by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(TodoOperations)
	reg.MustRegister(LoginAttempts)
}
