package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
// Tracks registration/login outcomes and critical path durations.
type Metrics struct {
	Registrations   prometheus.Counter
	LoginSucceeded  prometheus.Counter
	LoginFailed     prometheus.Counter
	TokensRefreshed prometheus.Counter
	RefreshDenied   prometheus.Counter
	DecodeFailures  prometheus.Counter
	OAuthExchanges  prometheus.Counter
	LoginDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all auth module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_registrations_total",
			Help: "Total number of accounts registered",
		}),
		LoginSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_logins_succeeded_total",
			Help: "Total number of successful password logins",
		}),
		LoginFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_logins_failed_total",
			Help: "Total number of rejected password logins",
		}),
		TokensRefreshed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_tokens_refreshed_total",
			Help: "Total number of access tokens minted via refresh",
		}),
		RefreshDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_refresh_denied_total",
			Help: "Total number of rejected refresh attempts",
		}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_token_decode_failures_total",
			Help: "Total number of access tokens that failed verification",
		}),
		OAuthExchanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taskgate_oauth_exchanges_total",
			Help: "Total number of OAuth authorization code exchanges",
		}),
		LoginDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskgate_login_duration_seconds",
			Help:    "Duration of Login operations (bcrypt dominates)",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementRegistrations records a successful account registration.
func (m *Metrics) IncrementRegistrations() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

// IncrementLoginSucceeded records a successful password login.
func (m *Metrics) IncrementLoginSucceeded() {
	if m == nil {
		return
	}
	m.LoginSucceeded.Inc()
}

// IncrementLoginFailed records a rejected password login.
func (m *Metrics) IncrementLoginFailed() {
	if m == nil {
		return
	}
	m.LoginFailed.Inc()
}

// IncrementTokensRefreshed records an access token minted via refresh.
func (m *Metrics) IncrementTokensRefreshed() {
	if m == nil {
		return
	}
	m.TokensRefreshed.Inc()
}

// IncrementRefreshDenied records a rejected refresh attempt.
func (m *Metrics) IncrementRefreshDenied() {
	if m == nil {
		return
	}
	m.RefreshDenied.Inc()
}

// IncrementDecodeFailures records an access token that failed verification.
func (m *Metrics) IncrementDecodeFailures() {
	if m == nil {
		return
	}
	m.DecodeFailures.Inc()
}

// IncrementOAuthExchanges records an OAuth authorization code exchange.
func (m *Metrics) IncrementOAuthExchanges() {
	if m == nil {
		return
	}
	m.OAuthExchanges.Inc()
}

// ObserveLogin records the duration of a Login operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLogin(start time.Time) {
	if m == nil {
		return
	}
	m.LoginDuration.Observe(time.Since(start).Seconds())
}
