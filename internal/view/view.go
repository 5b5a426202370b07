// Package view shapes resolved domain records into API payloads. Handlers
// never hand raw storage rows to clients; everything crosses this boundary,
// which flattens user records to lightweight refs and rebuilds comment
// threads as trees.
package view

import (
	"fmt"
	"sort"

	"crewdesk/internal/domain"
)

// UserRef is the compact user shape embedded in task and comment payloads.
type UserRef struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    UserRef   `json:"author"`
	IsEdited  bool      `json:"is_edited"`
	CreatedAt string    `json:"created_at" format:"date-time"`
	UpdatedAt string    `json:"updated_at" format:"date-time"`
	Replies   []Comment `json:"replies"`
}

type SubTask struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status" enum:"in-progress,completed,expired,closed"`
	Priority    string    `json:"priority" enum:"low,medium,high"`
	DueDate     string    `json:"due_date" format:"date-time"`
	Progress    int       `json:"progress"`
	AssignedTo  *UserRef  `json:"assigned_to,omitempty"`
	CreatedBy   UserRef   `json:"created_by"`
	Comments    []Comment `json:"comments"`
	CreatedAt   string    `json:"created_at" format:"date-time"`
	UpdatedAt   string    `json:"updated_at" format:"date-time"`
}

type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status" enum:"in-progress,completed,expired,closed"`
	Priority     string    `json:"priority" enum:"low,medium,high"`
	DueDate      string    `json:"due_date" format:"date-time"`
	Progress     int       `json:"progress"`
	AssignedTo   *UserRef  `json:"assigned_to,omitempty"`
	CreatedBy    UserRef   `json:"created_by"`
	Participants []UserRef `json:"participants"`
	Subtasks     []SubTask `json:"subtasks"`
	CreatedAt    string    `json:"created_at" format:"date-time"`
	UpdatedAt    string    `json:"updated_at" format:"date-time"`
}

// FromUser flattens a user record to a ref with a single display name.
func FromUser(u domain.User) UserRef {
	return UserRef{ID: u.ID, Name: u.FirstName + " " + u.LastName, Avatar: u.Avatar}
}

func userPtr(u *domain.User) *UserRef {
	if u == nil {
		return nil
	}
	r := FromUser(*u)
	return &r
}

// FromTaskDetail converts a resolved task into its API shape. Records missing
// an id, title, or status are rejected rather than rendered half-empty.
func FromTaskDetail(d domain.TaskDetail) (Task, error) {
	t := d.Task
	if t.ID == "" || t.Title == "" || t.Status == "" {
		return Task{}, fmt.Errorf("task %q is missing required fields", t.ID)
	}
	out := Task{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		DueDate:      t.DueDate,
		Progress:     t.Progress,
		AssignedTo:   userPtr(d.AssignedTo),
		CreatedBy:    FromUser(d.CreatedBy),
		Participants: make([]UserRef, 0, len(d.Participants)),
		Subtasks:     make([]SubTask, 0, len(d.Subtasks)),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	for _, p := range d.Participants {
		out.Participants = append(out.Participants, FromUser(p))
	}
	for _, s := range d.Subtasks {
		sv, err := FromSubTaskDetail(s)
		if err != nil {
			return Task{}, err
		}
		out.Subtasks = append(out.Subtasks, sv)
	}
	return out, nil
}

// FromSubTaskDetail converts a resolved subtask, threading its comments.
func FromSubTaskDetail(d domain.SubTaskDetail) (SubTask, error) {
	s := d.SubTask
	if s.ID == "" || s.Title == "" || s.Status == "" {
		return SubTask{}, fmt.Errorf("subtask %q is missing required fields", s.ID)
	}
	return SubTask{
		ID:          s.ID,
		TaskID:      s.TaskID,
		Title:       s.Title,
		Description: s.Description,
		Status:      s.Status,
		Priority:    s.Priority,
		DueDate:     s.DueDate,
		Progress:    s.Progress,
		AssignedTo:  userPtr(d.AssignedTo),
		CreatedBy:   FromUser(d.CreatedBy),
		Comments:    ThreadComments(d.Comments),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}, nil
}

// ThreadComments rebuilds the reply tree from the flat comment list. Only
// top-level comments appear at the root; replies nest recursively under
// their parent, ordered by creation time at every level. Replies is never
// nil so clients always see an array.
func ThreadComments(flat []domain.CommentDetail) []Comment {
	byParent := make(map[string][]domain.CommentDetail)
	for _, c := range flat {
		parent := ""
		if c.Comment.ParentID != nil {
			parent = *c.Comment.ParentID
		}
		byParent[parent] = append(byParent[parent], c)
	}
	return buildThread(byParent, "")
}

func buildThread(byParent map[string][]domain.CommentDetail, parent string) []Comment {
	children := byParent[parent]
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].Comment.CreatedAt < children[j].Comment.CreatedAt
	})
	out := make([]Comment, 0, len(children))
	for _, c := range children {
		out = append(out, Comment{
			ID:        c.Comment.ID,
			Text:      c.Comment.Text,
			Author:    FromUser(c.Author),
			IsEdited:  c.Comment.IsEdited,
			CreatedAt: c.Comment.CreatedAt,
			UpdatedAt: c.Comment.UpdatedAt,
			Replies:   buildThread(byParent, c.Comment.ID),
		})
	}
	return out
}
