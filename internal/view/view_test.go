package view

import (
	"testing"

	"crewdesk/internal/domain"
)

func user(id, first, last string) domain.User {
	return domain.User{ID: id, FirstName: first, LastName: last, Email: first + "@example.com"}
}

func comment(id, parent, text, createdAt string, author domain.User) domain.CommentDetail {
	c := domain.Comment{ID: id, SubTaskID: "st-1", AuthorID: author.ID, Text: text, CreatedAt: createdAt, UpdatedAt: createdAt}
	if parent != "" {
		c.ParentID = &parent
	}
	return domain.CommentDetail{Comment: c, Author: author}
}

func TestThreadCommentsNesting(t *testing.T) {
	alice := user("u-1", "Alice", "Moss")
	bob := user("u-2", "Bob", "Reyes")
	flat := []domain.CommentDetail{
		comment("c-1", "", "root one", "2026-01-01T10:00:00Z", alice),
		comment("c-3", "c-1", "reply to one", "2026-01-01T10:02:00Z", bob),
		comment("c-2", "", "root two", "2026-01-01T10:01:00Z", bob),
		comment("c-4", "c-3", "nested reply", "2026-01-01T10:03:00Z", alice),
	}

	tree := ThreadComments(flat)
	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}
	if tree[0].ID != "c-1" || tree[1].ID != "c-2" {
		t.Fatalf("roots out of order: %s, %s", tree[0].ID, tree[1].ID)
	}
	if len(tree[0].Replies) != 1 || tree[0].Replies[0].ID != "c-3" {
		t.Fatalf("expected c-3 under c-1, got %+v", tree[0].Replies)
	}
	if len(tree[0].Replies[0].Replies) != 1 || tree[0].Replies[0].Replies[0].ID != "c-4" {
		t.Fatalf("expected c-4 under c-3, got %+v", tree[0].Replies[0].Replies)
	}
	if tree[1].Replies == nil {
		t.Fatal("leaf replies should be an empty slice, not nil")
	}
	if got := tree[0].Author.Name; got != "Alice Moss" {
		t.Fatalf("author name = %q", got)
	}
}

func TestThreadCommentsEmpty(t *testing.T) {
	tree := ThreadComments(nil)
	if tree == nil || len(tree) != 0 {
		t.Fatalf("expected empty slice, got %#v", tree)
	}
}

func TestFromTaskDetailRejectsIncompleteRecords(t *testing.T) {
	_, err := FromTaskDetail(domain.TaskDetail{Task: domain.Task{ID: "t-1", Status: "in-progress"}})
	if err == nil {
		t.Fatal("expected error for task without title")
	}
	_, err = FromSubTaskDetail(domain.SubTaskDetail{SubTask: domain.SubTask{ID: "st-1", Title: "x"}})
	if err == nil {
		t.Fatal("expected error for subtask without status")
	}
}

func TestFromTaskDetailShapes(t *testing.T) {
	alice := user("u-1", "Alice", "Moss")
	bob := user("u-2", "Bob", "Reyes")
	d := domain.TaskDetail{
		Task: domain.Task{
			ID:        "t-1",
			Title:     "Ship the report",
			Status:    "in-progress",
			Priority:  "high",
			DueDate:   "2026-02-01T00:00:00Z",
			CreatedBy: alice.ID,
			Progress:  40,
			CreatedAt: "2026-01-01T00:00:00Z",
			UpdatedAt: "2026-01-02T00:00:00Z",
		},
		CreatedBy:    alice,
		AssignedTo:   &bob,
		Participants: []domain.User{bob},
		Subtasks: []domain.SubTaskDetail{{
			SubTask:   domain.SubTask{ID: "st-1", TaskID: "t-1", Title: "Draft", Status: "completed", Priority: "medium", DueDate: "2026-01-20T00:00:00Z", CreatedBy: alice.ID, Progress: 80},
			CreatedBy: alice,
		}},
	}

	got, err := FromTaskDetail(d)
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignedTo == nil || got.AssignedTo.Name != "Bob Reyes" {
		t.Fatalf("assigned_to = %+v", got.AssignedTo)
	}
	if len(got.Participants) != 1 || got.Participants[0].ID != bob.ID {
		t.Fatalf("participants = %+v", got.Participants)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0].Progress != 80 {
		t.Fatalf("subtasks = %+v", got.Subtasks)
	}
	if got.Subtasks[0].Comments == nil {
		t.Fatal("subtask comments should be an empty slice, not nil")
	}
	if got.Progress != 40 {
		t.Fatalf("progress = %d", got.Progress)
	}
}
