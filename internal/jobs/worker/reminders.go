package worker

import (
	"context"
)

type ReminderSource interface {
	SendDueReminders(ctx context.Context) (int, error)
}

type ReminderMetrics interface {
	AddRemindersSent(n int)
}

// ReminderTask pushes today's follow-up reminders to their asesores.
type ReminderTask struct {
	source  ReminderSource
	metrics ReminderMetrics
}

func NewReminderTask(source ReminderSource, metrics ReminderMetrics) *ReminderTask {
	return &ReminderTask{source: source, metrics: metrics}
}

func (t *ReminderTask) Name() string { return "reminders" }

func (t *ReminderTask) Run(ctx context.Context) error {
	n, err := t.source.SendDueReminders(ctx)
	if err != nil {
		return err
	}
	if n > 0 && t.metrics != nil {
		t.metrics.AddRemindersSent(n)
	}
	return nil
}
