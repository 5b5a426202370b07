package engine

import (
	"context"
	"fmt"
	"time"

	"crewdesk/internal/domain"
)

// AddParticipant adds a user to the task participant set. Malformed ids are
// ValidationError, missing task or user is NotFound, and adding a user who is
// already a member is Conflict. The insert itself is a single atomic
// set-insert, never a read-modify-write of the whole set.
func (e Engine) AddParticipant(ctx context.Context, taskID, userID string) (domain.TaskDetail, error) {
	if err := validUUID("task id", taskID); err != nil {
		return domain.TaskDetail{}, err
	}
	if err := validUUID("user id", userID); err != nil {
		return domain.TaskDetail{}, err
	}
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.TaskDetail{}, err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return domain.TaskDetail{}, err
	}
	member, err := e.Repo.HasParticipant(ctx, taskID, userID)
	if err != nil {
		return domain.TaskDetail{}, err
	}
	if member {
		return domain.TaskDetail{}, fmt.Errorf("%w: user is already a participant", ErrConflict)
	}
	if err := e.Repo.AddParticipant(ctx, taskID, userID, e.now().UTC().Format(time.RFC3339)); err != nil {
		return domain.TaskDetail{}, err
	}
	return e.GetTaskDetail(ctx, taskID)
}

// RemoveParticipant removes a user from the participant set. Only a missing
// task is NotFound; removing someone who is not a member, or passing a
// malformed participant id, succeeds unchanged.
func (e Engine) RemoveParticipant(ctx context.Context, taskID, userID string) (domain.TaskDetail, error) {
	if err := validUUID("task id", taskID); err != nil {
		return domain.TaskDetail{}, err
	}
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return domain.TaskDetail{}, err
	}
	if err := e.Repo.RemoveParticipant(ctx, taskID, userID); err != nil {
		return domain.TaskDetail{}, err
	}
	return e.GetTaskDetail(ctx, taskID)
}
