package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pm_tasks_created_total", Help: "Tasks created, split by top-level or subtask"},
		[]string{"kind"},
	)
	TaskTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pm_task_status_transitions_total", Help: "Accepted task status changes"},
		[]string{"from", "to"},
	)
	WorklogHours = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pm_worklog_hours_total", Help: "Hours recorded through new worklogs"},
	)
	OvertimeWorklogs = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pm_overtime_worklogs_total", Help: "Worklogs written with the overtime flag set"},
	)
	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pm_notifications_dispatched_total", Help: "Post-commit notification effects by kind and outcome"},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(TasksCreated, TaskTransitions, WorklogHours, OvertimeWorklogs, NotificationsDispatched)
}
