package engine

import (
	"context"
	"errors"
	"fmt"

	"crewdesk/internal/events"
	"crewdesk/internal/repo"
)

// DeleteTask removes a task and everything under it in one transaction:
// comments first, then subtasks, then participant rows, then the task.
// Any failure rolls the whole cascade back and surfaces ErrCascadeFailed.
func (e Engine) DeleteTask(ctx context.Context, taskID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return cascadeError(err)
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return err
		}
		return cascadeError(err)
	}
	if err := e.Repo.DeleteCommentsByTaskTx(ctx, tx, taskID); err != nil {
		return cascadeError(err)
	}
	if err := e.Repo.DeleteSubtasksByTaskTx(ctx, tx, taskID); err != nil {
		return cascadeError(err)
	}
	if err := e.Repo.DeleteParticipantsTx(ctx, tx, taskID); err != nil {
		return cascadeError(err)
	}
	if err := e.Repo.DeleteTaskTx(ctx, tx, taskID); err != nil {
		return cascadeError(err)
	}
	if err := e.Events.Append(ctx, tx, "task.deleted", "task", taskID, actorID, events.EventPayload{
		"title":    t.Title,
		"subtasks": len(t.Subtasks),
	}); err != nil {
		return cascadeError(err)
	}
	if err := tx.Commit(); err != nil {
		return cascadeError(err)
	}
	return nil
}

// DeleteSubtask removes one subtask and its comments transactionally, then
// re-derives the parent task progress after the commit.
func (e Engine) DeleteSubtask(ctx context.Context, subtaskID, actorID string) error {
	s, err := e.Repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteCommentsBySubtaskTx(ctx, tx, subtaskID); err != nil {
		return err
	}
	if err := e.Repo.DeleteSubtaskTx(ctx, tx, subtaskID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "subtask.deleted", "subtask", subtaskID, actorID, events.EventPayload{"task_id": s.TaskID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if _, err := e.RecomputeTaskProgress(ctx, s.TaskID); err != nil {
		return err
	}
	return nil
}

func cascadeError(err error) error {
	return fmt.Errorf("%w: %v", ErrCascadeFailed, err)
}
