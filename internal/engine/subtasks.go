package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crewdesk/internal/domain"
	"crewdesk/internal/events"
)

// SubtaskCreateOptions are parameters for creating a subtask under a task.
type SubtaskCreateOptions struct {
	TaskID      string
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	AssignedTo  string
	CreatedBy   string
	Progress    int
}

func (e Engine) CreateSubtask(ctx context.Context, opts SubtaskCreateOptions) (domain.SubTask, error) {
	if opts.Title == "" {
		return domain.SubTask{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if opts.DueDate == "" {
		return domain.SubTask{}, fmt.Errorf("%w: due_date is required", ErrValidation)
	}
	if opts.Progress < 0 || opts.Progress > 100 {
		return domain.SubTask{}, fmt.Errorf("%w: progress must be between 0 and 100", ErrValidation)
	}
	if opts.Status == "" {
		opts.Status = "in-progress"
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	if err := validStatus(opts.Status); err != nil {
		return domain.SubTask{}, err
	}
	if err := validPriority(opts.Priority); err != nil {
		return domain.SubTask{}, err
	}
	if _, err := e.Repo.GetTask(ctx, opts.TaskID); err != nil {
		return domain.SubTask{}, err
	}
	if _, err := e.Repo.GetUser(ctx, opts.CreatedBy); err != nil {
		return domain.SubTask{}, err
	}
	if opts.AssignedTo != "" {
		if _, err := e.Repo.GetUser(ctx, opts.AssignedTo); err != nil {
			return domain.SubTask{}, err
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	s := domain.SubTask{
		ID:          uuid.New().String(),
		TaskID:      opts.TaskID,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      opts.Status,
		Priority:    opts.Priority,
		DueDate:     opts.DueDate,
		AssignedTo:  optionalString(opts.AssignedTo),
		CreatedBy:   opts.CreatedBy,
		Progress:    opts.Progress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSubtask(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "subtask.created", "subtask", s.ID, opts.CreatedBy, events.EventPayload{"task_id": s.TaskID, "title": s.Title}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	// The new subtask's progress shifts the mean immediately.
	if _, err := e.RecomputeTaskProgress(ctx, s.TaskID); err != nil {
		return s, err
	}
	return s, nil
}

// SubtaskUpdateOptions encapsulates allowed subtask updates. Nil fields are untouched.
type SubtaskUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
	AssignedTo  *string
	Progress    *int
	ActorID     string
}

func (e Engine) UpdateSubtask(ctx context.Context, opts SubtaskUpdateOptions) (domain.SubTask, error) {
	s, err := e.Repo.GetSubtask(ctx, opts.ID)
	if err != nil {
		return s, err
	}
	original := s
	if opts.Title != nil {
		if *opts.Title == "" {
			return s, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		s.Title = *opts.Title
	}
	if opts.Description != nil {
		s.Description = *opts.Description
	}
	if opts.Status != nil {
		if err := validStatus(*opts.Status); err != nil {
			return s, err
		}
		s.Status = *opts.Status
	}
	if opts.Priority != nil {
		if err := validPriority(*opts.Priority); err != nil {
			return s, err
		}
		s.Priority = *opts.Priority
	}
	if opts.DueDate != nil {
		if *opts.DueDate == "" {
			return s, fmt.Errorf("%w: due_date cannot be empty", ErrValidation)
		}
		s.DueDate = *opts.DueDate
	}
	if opts.AssignedTo != nil {
		if *opts.AssignedTo == "" {
			s.AssignedTo = nil
		} else {
			if _, err := e.Repo.GetUser(ctx, *opts.AssignedTo); err != nil {
				return s, err
			}
			s.AssignedTo = opts.AssignedTo
		}
	}
	if opts.Progress != nil {
		if *opts.Progress < 0 || *opts.Progress > 100 {
			return s, fmt.Errorf("%w: progress must be between 0 and 100", ErrValidation)
		}
		s.Progress = *opts.Progress
	}
	s.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return s, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateSubtask(ctx, tx, s); err != nil {
		return s, err
	}
	if err := e.Events.Append(ctx, tx, "subtask.updated", "subtask", s.ID, opts.ActorID, events.EventPayload{
		"task_id":     s.TaskID,
		"from_status": original.Status,
		"to_status":   s.Status,
	}); err != nil {
		return s, err
	}
	if err := tx.Commit(); err != nil {
		return s, err
	}
	if s.Progress != original.Progress || s.Status != original.Status {
		if _, err := e.RecomputeTaskProgress(ctx, s.TaskID); err != nil {
			return s, err
		}
	}
	return s, nil
}

// UpdateSubtaskProgress sets the authoritative subtask progress and re-derives
// the parent task progress.
func (e Engine) UpdateSubtaskProgress(ctx context.Context, subtaskID string, progress int, actorID string) (domain.SubTask, error) {
	return e.UpdateSubtask(ctx, SubtaskUpdateOptions{ID: subtaskID, Progress: &progress, ActorID: actorID})
}

// CommentCreateOptions are parameters for commenting on a subtask.
type CommentCreateOptions struct {
	SubTaskID string
	AuthorID  string
	Text      string
	ParentID  string
}

// CreateComment appends a comment, optionally threaded under a parent on the
// same subtask.
func (e Engine) CreateComment(ctx context.Context, opts CommentCreateOptions) (domain.Comment, error) {
	if opts.Text == "" {
		return domain.Comment{}, fmt.Errorf("%w: text is required", ErrValidation)
	}
	s, err := e.Repo.GetSubtask(ctx, opts.SubTaskID)
	if err != nil {
		return domain.Comment{}, err
	}
	if _, err := e.Repo.GetUser(ctx, opts.AuthorID); err != nil {
		return domain.Comment{}, err
	}
	if opts.ParentID != "" {
		parent, err := e.Repo.GetComment(ctx, opts.ParentID)
		if err != nil {
			return domain.Comment{}, err
		}
		if parent.SubTaskID != s.ID {
			return domain.Comment{}, fmt.Errorf("%w: parent comment belongs to a different subtask", ErrValidation)
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	c := domain.Comment{
		ID:        uuid.New().String(),
		SubTaskID: s.ID,
		AuthorID:  opts.AuthorID,
		Text:      opts.Text,
		ParentID:  optionalString(opts.ParentID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertComment(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Events.Append(ctx, tx, "comment.created", "comment", c.ID, opts.AuthorID, events.EventPayload{"subtask_id": s.ID}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}
