package ipguard

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	decisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nps_security_decisions_total",
		Help: "Admission decisions made by security groups",
	}, []string{"result"})
	cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nps_security_decision_cache_hits_total",
		Help: "Admission decisions served from the decision cache",
	})
	rejectedConnsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nps_security_rejected_connections_total",
		Help: "Connections and requests closed by a security group",
	})
)

// Register registers the guard collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(decisionsTotal, cacheHitsTotal, rejectedConnsTotal)
}

func observe(allowed, cached bool) {
	if allowed {
		decisionsTotal.WithLabelValues("allow").Inc()
	} else {
		decisionsTotal.WithLabelValues("reject").Inc()
	}
	if cached {
		cacheHitsTotal.Inc()
	}
}
