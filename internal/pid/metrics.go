package pid

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// mint outcomes used as the "outcome" label
const (
	outcomeCreated     = "created"
	outcomeUpdated     = "updated"
	outcomeInvalid     = "invalid_request"
	outcomeRejected    = "upstream_rejected"
	outcomeUnreachable = "upstream_unreachable"
	outcomeAuthFailed  = "auth_failed"
	outcomeError       = "error"
)

// Metrics holds the Prometheus collectors for minting.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	mints             *prometheus.CounterVec
	upstreamResponses *prometheus.CounterVec
	reauthentications prometheus.Counter
}

// NewMetrics creates the mint collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		mints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pid_service",
			Name:      "mints_total",
			Help:      "Mint requests by outcome.",
		}, []string{"outcome"}),
		upstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pid_service",
			Name:      "upstream_responses_total",
			Help:      "Handle server PUT responses by HTTP status.",
		}, []string{"status"}),
		reauthentications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pid_service",
			Name:      "reauthentications_total",
			Help:      "Mint requests retried after the Handle server session expired.",
		}),
	}

	for _, c := range []prometheus.Collector{m.mints, m.upstreamResponses, m.reauthentications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeMint(outcome string) {
	if m == nil {
		return
	}
	m.mints.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeUpstreamStatus(status int) {
	if m == nil {
		return
	}
	m.upstreamResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) observeReauthentication() {
	if m == nil {
		return
	}
	m.reauthentications.Inc()
}

func outcomeFor(err error) string {
	var pidErr *PidError
	if !errors.As(err, &pidErr) {
		return outcomeError
	}
	switch pidErr.Code() {
	case ErrCodeInvalidRequest, ErrCodeMalformedRequest:
		return outcomeInvalid
	case ErrCodeUpstreamRejected:
		return outcomeRejected
	case ErrCodeUpstreamUnreachable:
		return outcomeUnreachable
	case ErrCodeAuth, ErrCodeAuthExpired:
		return outcomeAuthFailed
	default:
		return outcomeError
	}
}
