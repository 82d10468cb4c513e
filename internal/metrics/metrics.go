package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coachcarter"

var (
	// WebhookEvents входящие события провайдера по результату (created, duplicate, ignored, rejected, failed)
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "The total number of payment provider events by processing result",
		},
		[]string{"type", "result"},
	)

	// NotificationDeliveries попытки доставки уведомлений по каналу
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_deliveries_total",
			Help:      "The total number of notification delivery attempts by channel and result",
		},
		[]string{"notification", "channel", "result"},
	)

	// ScheduledActions выполнения отложенных действий
	ScheduledActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_actions_total",
			Help:      "The total number of scheduled action executions by kind and result",
		},
		[]string{"kind", "result"},
	)

	// ScheduledActionDuration время выполнения одного действия
	ScheduledActionDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "scheduled_action_duration_seconds",
			Help:       "The time spent executing scheduled actions",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"kind"},
	)

	// SessionVerifications результаты запросов verify-session (paid, pending, unpaid, error)
	SessionVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_verifications_total",
			Help:      "The total number of checkout session verification queries by result",
		},
		[]string{"result", "cache"},
	)
)
