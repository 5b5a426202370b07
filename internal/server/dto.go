package server

import (
	"crewdesk/internal/domain"
)

type CreateUserRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email" format:"email"`
	Avatar    *string `json:"avatar,omitempty"`
}

type LoginRequest struct {
	Email string `json:"email" format:"email"`
}

type SearchUsersRequest struct {
	Query string `json:"query"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"in-progress,completed,expired,closed"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     string  `json:"due_date" format:"date-time"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"in-progress,completed,expired,closed"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
}

type SetStatusRequest struct {
	Status string `json:"status" enum:"in-progress,completed,expired,closed"`
}

type AssignRequest struct {
	UserID string `json:"user_id"`
}

type AddParticipantRequest struct {
	UserID string `json:"user_id"`
}

type CreateSubtaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"in-progress,completed,expired,closed"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     string  `json:"due_date" format:"date-time"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	Progress    *int    `json:"progress,omitempty" minimum:"0" maximum:"100"`
}

type UpdateSubtaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" enum:"in-progress,completed,expired,closed"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	Progress    *int    `json:"progress,omitempty" minimum:"0" maximum:"100"`
}

type SetProgressRequest struct {
	Progress int `json:"progress" minimum:"0" maximum:"100"`
}

type ProgressResponse struct {
	TaskID   string `json:"task_id"`
	Progress int    `json:"progress"`
}

type CreateCommentRequest struct {
	Text     string  `json:"text"`
	ParentID *string `json:"parent_comment_id,omitempty"`
}

type CreateConversationRequest struct {
	TaskID       string                           `json:"task_id"`
	TaskTitle    string                           `json:"task_title"`
	TaskStatus   string                           `json:"task_status" enum:"in-progress,completed,expired,closed"`
	Participants []ConversationParticipantRequest `json:"participants"`
}

type ConversationParticipantRequest struct {
	UserID string  `json:"id"`
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
	Role   string  `json:"role" enum:"owner,member"`
}

type SendMessageRequest struct {
	Content string  `json:"content"`
	ReplyTo *string `json:"reply_to,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type ConversationDetailResponse struct {
	Conversation domain.Conversation `json:"conversation"`
	Messages     []domain.Message    `json:"messages"`
}

func conversationParticipants(in []ConversationParticipantRequest) []domain.ConversationParticipant {
	out := make([]domain.ConversationParticipant, 0, len(in))
	for _, p := range in {
		role := p.Role
		if role == "" {
			role = "member"
		}
		out = append(out, domain.ConversationParticipant{
			UserID: p.UserID,
			Name:   p.Name,
			Avatar: p.Avatar,
			Role:   role,
		})
	}
	return out
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func intOrZero(ptr *int) int {
	if ptr == nil {
		return 0
	}
	return *ptr
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
