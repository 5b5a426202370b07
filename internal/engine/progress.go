package engine

import (
	"context"
	"math"
	"time"
)

// RecomputeTaskProgress derives the task progress from its subtasks and
// persists it. Each subtask value is clamped to [0,100] before averaging;
// the mean is rounded half away from zero. A task with no subtasks is 0.
// This runs as its own write after the triggering mutation has committed,
// so a reader may briefly observe the pre-aggregation value.
func (e Engine) RecomputeTaskProgress(ctx context.Context, taskID string) (int, error) {
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return 0, err
	}
	values, err := e.Repo.SubtaskProgressValues(ctx, taskID)
	if err != nil {
		return 0, err
	}
	progress := aggregateProgress(values)
	if err := e.Repo.UpdateTaskProgress(ctx, taskID, progress, e.now().UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	return progress, nil
}

func aggregateProgress(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += clampProgress(v)
	}
	return int(math.Round(float64(sum) / float64(len(values))))
}

func clampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
