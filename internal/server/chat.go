package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"crewdesk/internal/domain"
	"crewdesk/internal/engine"
)

func registerChat(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-conversations",
		Method:      http.MethodGet,
		Path:        "/chat/conversations",
		Summary:     "Conversations for the current user",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Conversation `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListConversations(ctx, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Conversation `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-conversation",
		Method:        http.MethodPost,
		Path:          "/chat/conversations",
		Summary:       "Open a conversation for a task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateConversationRequest `json:"body"`
	}) (*struct {
		Body domain.Conversation `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateConversation(ctx, engine.ConversationCreateOptions{
			TaskID:       input.Body.TaskID,
			TaskTitle:    input.Body.TaskTitle,
			TaskStatus:   input.Body.TaskStatus,
			Participants: conversationParticipants(input.Body.Participants),
			ActorID:      userID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Conversation `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-conversation",
		Method:      http.MethodGet,
		Path:        "/chat/conversations/{conversation_id}",
		Summary:     "Get conversation with its messages",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ConversationID string `path:"conversation_id"`
	}) (*struct {
		Body ConversationDetailResponse `json:"body"`
	}, error) {
		detail, err := e.GetConversationDetail(ctx, input.ConversationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ConversationDetailResponse `json:"body"`
		}{Body: ConversationDetailResponse{
			Conversation: detail.Conversation,
			Messages:     nonNilSlice(detail.Messages),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "send-message",
		Method:        http.MethodPost,
		Path:          "/chat/conversations/{conversation_id}/messages",
		Summary:       "Send a message",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ConversationID string             `path:"conversation_id"`
		Body           SendMessageRequest `json:"body"`
	}) (*struct {
		Body domain.Message `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.MessageCreateOptions{
			ConversationID: input.ConversationID,
			SenderID:       userID,
			Content:        input.Body.Content,
		}
		if input.Body.ReplyTo != nil && *input.Body.ReplyTo != "" {
			// Freeze the quoted snippet now; later edits to the original
			// message do not rewrite it.
			quoted, err := e.Repo.GetMessage(ctx, *input.Body.ReplyTo)
			if err != nil {
				return nil, handleError(err)
			}
			opts.ReplyTo = &domain.ReplyRef{
				MessageID:  quoted.ID,
				SenderName: quoted.SenderName,
				Content:    quoted.Content,
			}
		}
		m, err := e.SendMessage(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Message `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-conversation-read",
		Method:      http.MethodPut,
		Path:        "/chat/conversations/{conversation_id}/read",
		Summary:     "Mark every message in the conversation as read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ConversationID string `path:"conversation_id"`
	}) (*struct {
		Body domain.Conversation `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.MarkAsRead(ctx, input.ConversationID, userID); err != nil {
			return nil, handleError(err)
		}
		c, err := e.Repo.GetConversation(ctx, input.ConversationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Conversation `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-message",
		Method:      http.MethodPut,
		Path:        "/chat/messages/{message_id}",
		Summary:     "Edit a message",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		MessageID string             `path:"message_id"`
		Body      EditMessageRequest `json:"body"`
	}) (*struct {
		Body domain.Message `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.EditMessage(ctx, input.MessageID, input.Body.Content, userID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Message `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-message",
		Method:        http.MethodDelete,
		Path:          "/chat/messages/{message_id}",
		Summary:       "Delete a message",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MessageID string `path:"message_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMessage(ctx, input.MessageID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
