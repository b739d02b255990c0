package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var setupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contentq_filter_setups_total",
	Help: "Filter setups by result.",
}, []string{"result"})
