package metrics

import "context"

// ScheduleCost returns the total cost for a schedule.
func (q *Query) ScheduleCost(ctx context.Context, scheduleID string) (float64, error) {
	return q.TotalCost(ctx, Filter{ScheduleID: scheduleID})
}

// StageCost returns the total cost for a stage (across all schedules).
func (q *Query) StageCost(ctx context.Context, stage string) (float64, error) {
	return q.TotalCost(ctx, Filter{Stage: stage})
}

// ScheduleStageCost returns the total cost for a specific schedule and stage.
func (q *Query) ScheduleStageCost(ctx context.Context, scheduleID, stage string) (float64, error) {
	return q.TotalCost(ctx, Filter{ScheduleID: scheduleID, Stage: stage})
}

// ScheduleStageBreakdown returns cost breakdown by stage for a schedule.
func (q *Query) ScheduleStageBreakdown(ctx context.Context, scheduleID string) (map[string]float64, error) {
	metrics, err := q.List(ctx, Filter{ScheduleID: scheduleID}, 0)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]float64)
	for _, m := range metrics {
		breakdown[m.Stage] += m.CostUSD
	}
	return breakdown, nil
}

// CostByModel returns cost breakdown by model.
func (q *Query) CostByModel(ctx context.Context, f Filter) (map[string]float64, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]float64)
	for _, m := range metrics {
		breakdown[m.Model] += m.CostUSD
	}
	return breakdown, nil
}

// CostByProvider returns cost breakdown by provider.
func (q *Query) CostByProvider(ctx context.Context, f Filter) (map[string]float64, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]float64)
	for _, m := range metrics {
		breakdown[m.Provider] += m.CostUSD
	}
	return breakdown, nil
}

// CostByStage returns cost breakdown by recognition stage (header, objective, subjective).
func (q *Query) CostByStage(ctx context.Context, f Filter) (map[string]float64, error) {
	metrics, err := q.List(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]float64)
	for _, m := range metrics {
		stage := m.Stage
		if stage == "" {
			stage = m.Provider
		}
		breakdown[stage] += m.CostUSD
	}
	return breakdown, nil
}

// MetricForOutput returns the metric that produced a specific output version.
func (q *Query) MetricForOutput(ctx context.Context, docID, cid string) (*Metric, error) {
	metrics, err := q.List(ctx, Filter{OutputDocID: docID, OutputCID: cid}, 1)
	if err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, nil
	}
	return &metrics[0], nil
}
