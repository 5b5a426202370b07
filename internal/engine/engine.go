package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crewdesk/internal/domain"
	"crewdesk/internal/events"
	"crewdesk/internal/repo"
)

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Broadcast Broadcaster
	Now       func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Events:    events.Writer{DB: db},
		Broadcast: NopBroadcaster{},
		Now:       time.Now,
	}
}

var (
	// ErrValidation marks rejected input; surfaces as a 400.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a state conflict such as a duplicate participant; surfaces as a 400.
	ErrConflict = errors.New("conflict")
	// ErrCascadeFailed is the only error a failed task delete cascade surfaces.
	ErrCascadeFailed = errors.New("failed to delete task and its associated data")
)

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) broadcaster() Broadcaster {
	if e.Broadcast != nil {
		return e.Broadcast
	}
	return NopBroadcaster{}
}

var taskStatuses = map[string]bool{
	"in-progress": true,
	"completed":   true,
	"expired":     true,
	"closed":      true,
}

var taskPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

func validStatus(s string) error {
	if !taskStatuses[s] {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return nil
}

func validPriority(p string) error {
	if !taskPriorities[p] {
		return fmt.Errorf("%w: invalid priority %q", ErrValidation, p)
	}
	return nil
}

func validUUID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid %s %q", ErrValidation, field, id)
	}
	return nil
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	AssignedTo  string
	CreatedBy   string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if opts.DueDate == "" {
		return domain.Task{}, fmt.Errorf("%w: due_date is required", ErrValidation)
	}
	if opts.CreatedBy == "" {
		return domain.Task{}, fmt.Errorf("%w: created_by is required", ErrValidation)
	}
	if opts.Status == "" {
		opts.Status = "in-progress"
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	if err := validStatus(opts.Status); err != nil {
		return domain.Task{}, err
	}
	if err := validPriority(opts.Priority); err != nil {
		return domain.Task{}, err
	}
	if _, err := e.Repo.GetUser(ctx, opts.CreatedBy); err != nil {
		return domain.Task{}, err
	}
	if opts.AssignedTo != "" {
		if _, err := e.Repo.GetUser(ctx, opts.AssignedTo); err != nil {
			return domain.Task{}, err
		}
	}
	now := e.now().UTC().Format(time.RFC3339)
	t := domain.Task{
		ID:          uuid.New().String(),
		Title:       opts.Title,
		Description: opts.Description,
		Status:      opts.Status,
		Priority:    opts.Priority,
		DueDate:     opts.DueDate,
		AssignedTo:  optionalString(opts.AssignedTo),
		CreatedBy:   opts.CreatedBy,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", "task", t.ID, opts.CreatedBy, events.EventPayload{"title": t.Title, "status": t.Status}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// TaskUpdateOptions encapsulates allowed updates. Nil fields are untouched.
type TaskUpdateOptions struct {
	ID          string
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
	AssignedTo  *string
	ActorID     string
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskUpdateOptions) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, opts.ID)
	if err != nil {
		return t, err
	}
	original := t
	if opts.Title != nil {
		if *opts.Title == "" {
			return t, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		t.Title = *opts.Title
	}
	if opts.Description != nil {
		t.Description = *opts.Description
	}
	if opts.Status != nil {
		if err := validStatus(*opts.Status); err != nil {
			return t, err
		}
		t.Status = *opts.Status
	}
	if opts.Priority != nil {
		if err := validPriority(*opts.Priority); err != nil {
			return t, err
		}
		t.Priority = *opts.Priority
	}
	if opts.DueDate != nil {
		if *opts.DueDate == "" {
			return t, fmt.Errorf("%w: due_date cannot be empty", ErrValidation)
		}
		t.DueDate = *opts.DueDate
	}
	if opts.AssignedTo != nil {
		if *opts.AssignedTo == "" {
			t.AssignedTo = nil
		} else {
			if _, err := e.Repo.GetUser(ctx, *opts.AssignedTo); err != nil {
				return t, err
			}
			t.AssignedTo = opts.AssignedTo
		}
	}
	t.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, "task.updated", "task", t.ID, opts.ActorID, events.EventPayload{
		"from_status": original.Status,
		"to_status":   t.Status,
	}); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}

func (e Engine) SetTaskStatus(ctx context.Context, taskID, status, actorID string) (domain.Task, error) {
	s := status
	return e.UpdateTask(ctx, TaskUpdateOptions{ID: taskID, Status: &s, ActorID: actorID})
}

func (e Engine) AssignTask(ctx context.Context, taskID, userID, actorID string) (domain.Task, error) {
	if userID == "" {
		return domain.Task{}, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	u := userID
	return e.UpdateTask(ctx, TaskUpdateOptions{ID: taskID, AssignedTo: &u, ActorID: actorID})
}

func (e Engine) UnassignTask(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	empty := ""
	return e.UpdateTask(ctx, TaskUpdateOptions{ID: taskID, AssignedTo: &empty, ActorID: actorID})
}

// GetTaskDetail resolves a task and its whole subtree into record snapshots.
func (e Engine) GetTaskDetail(ctx context.Context, taskID string) (domain.TaskDetail, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.TaskDetail{}, err
	}
	return e.resolveTask(ctx, t)
}

func (e Engine) resolveTask(ctx context.Context, t domain.Task) (domain.TaskDetail, error) {
	d := domain.TaskDetail{Task: t}
	var err error
	d.CreatedBy, err = e.Repo.GetUser(ctx, t.CreatedBy)
	if err != nil {
		return d, fmt.Errorf("resolve created_by: %w", err)
	}
	if t.AssignedTo != nil {
		u, err := e.Repo.GetUser(ctx, *t.AssignedTo)
		if err != nil {
			return d, fmt.Errorf("resolve assigned_to: %w", err)
		}
		d.AssignedTo = &u
	}
	for _, id := range t.Participants {
		u, err := e.Repo.GetUser(ctx, id)
		if err != nil {
			return d, fmt.Errorf("resolve participant %s: %w", id, err)
		}
		d.Participants = append(d.Participants, u)
	}
	subs, err := e.Repo.ListSubtasks(ctx, t.ID)
	if err != nil {
		return d, err
	}
	for _, s := range subs {
		sd, err := e.resolveSubtask(ctx, s)
		if err != nil {
			return d, err
		}
		d.Subtasks = append(d.Subtasks, sd)
	}
	return d, nil
}

func (e Engine) resolveSubtask(ctx context.Context, s domain.SubTask) (domain.SubTaskDetail, error) {
	d := domain.SubTaskDetail{SubTask: s}
	var err error
	d.CreatedBy, err = e.Repo.GetUser(ctx, s.CreatedBy)
	if err != nil {
		return d, fmt.Errorf("resolve created_by: %w", err)
	}
	if s.AssignedTo != nil {
		u, err := e.Repo.GetUser(ctx, *s.AssignedTo)
		if err != nil {
			return d, fmt.Errorf("resolve assigned_to: %w", err)
		}
		d.AssignedTo = &u
	}
	comments, err := e.Repo.ListComments(ctx, s.ID)
	if err != nil {
		return d, err
	}
	for _, c := range comments {
		author, err := e.Repo.GetUser(ctx, c.AuthorID)
		if err != nil {
			return d, fmt.Errorf("resolve comment author: %w", err)
		}
		d.Comments = append(d.Comments, domain.CommentDetail{Comment: c, Author: author})
	}
	return d, nil
}

// GetSubtaskDetail resolves a single subtask with its comment thread.
func (e Engine) GetSubtaskDetail(ctx context.Context, subtaskID string) (domain.SubTaskDetail, error) {
	s, err := e.Repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return domain.SubTaskDetail{}, err
	}
	return e.resolveSubtask(ctx, s)
}

// UserCreateOptions are parameters for registering a user.
type UserCreateOptions struct {
	FirstName string
	LastName  string
	Email     string
	Avatar    string
}

func (e Engine) CreateUser(ctx context.Context, opts UserCreateOptions) (domain.User, error) {
	if opts.FirstName == "" || opts.LastName == "" {
		return domain.User{}, fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}
	if opts.Email == "" {
		return domain.User{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := e.Repo.GetUserByEmail(ctx, opts.Email); err == nil {
		return domain.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	u := domain.User{
		ID:        uuid.New().String(),
		FirstName: opts.FirstName,
		LastName:  opts.LastName,
		Email:     opts.Email,
		Avatar:    optionalString(opts.Avatar),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
