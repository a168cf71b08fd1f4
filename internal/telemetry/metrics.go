package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики worker'а. Регистрируются в default registry и отдаются promhttp.Handler().
var (
	// EventsHandled — обработанные уведомления леджера по типу.
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cronos_worker_events_handled_total",
		Help: "Ledger notifications handled, by event type",
	}, []string{"type"})

	// QueuesPromoted — очереди, переведённые из pending в actionable.
	QueuesPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cronos_worker_queues_promoted_total",
		Help: "Queues promoted from the pending index to the actionable set",
	})

	// ClockFallbacks — подтверждённые слоты без сэмпла часов.
	ClockFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cronos_worker_clock_fallbacks_total",
		Help: "Confirmed slots that required an out-of-band clock read",
	})

	// SweepOutcomes — результаты попыток исполнения очередей.
	SweepOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cronos_worker_sweep_outcomes_total",
		Help: "Queue dispatch attempts, by outcome",
	}, []string{"status"})

	// TransactionsSubmitted — транзакции, переданные в sink.
	TransactionsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cronos_worker_transactions_submitted_total",
		Help: "Signed transactions handed to the submission sink",
	})

	// ResultsDropped — результаты, не доставленные в канал Results().
	ResultsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cronos_worker_results_dropped_total",
		Help: "Handler results dropped because nobody was draining the result channel",
	})

	// PendingQueues — размер pending index.
	PendingQueues = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cronos_worker_pending_queues",
		Help: "Queues waiting in the pending index",
	})

	// ActionableQueues — размер actionable set.
	ActionableQueues = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cronos_worker_actionable_queues",
		Help: "Queues currently eligible for dispatch",
	})

	// ClockSamples — неподтверждённые сэмплы часов.
	ClockSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cronos_worker_clock_samples",
		Help: "Clock samples for slots not yet confirmed",
	})

	// IsDelegate — 1, если узел сейчас делегат.
	IsDelegate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cronos_worker_is_delegate",
		Help: "1 if this node currently holds a delegate position",
	})

	// APIRequests — запросы к API состояния по маршруту и коду ответа.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cronos_worker_api_requests_total",
		Help: "Status API requests, by route pattern and response code",
	}, []string{"route", "code"})
)
