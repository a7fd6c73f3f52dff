package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// targetAlertsFired counts user target-price alert notifications.
	targetAlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_monitor_target_alerts_fired_total",
		Help: "Total number of target-price alert notifications fired",
	})

	// changeAlertsFired counts significant consecutive price moves.
	changeAlertsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_monitor_change_alerts_fired_total",
		Help: "Total number of significant price-change events detected",
	})
)
