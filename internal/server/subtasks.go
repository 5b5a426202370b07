package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"crewdesk/internal/engine"
	"crewdesk/internal/view"
)

func subtaskView(ctx context.Context, e engine.Engine, subtaskID string) (view.SubTask, huma.StatusError) {
	detail, err := e.GetSubtaskDetail(ctx, subtaskID)
	if err != nil {
		return view.SubTask{}, handleError(err)
	}
	v, err := view.FromSubTaskDetail(detail)
	if err != nil {
		return view.SubTask{}, handleError(err)
	}
	return v, nil
}

func registerSubtasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-subtask",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/subtasks",
		Summary:       "Create subtask",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string               `path:"task_id"`
		Body   CreateSubtaskRequest `json:"body"`
	}) (*struct {
		Body view.SubTask `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateSubtask(ctx, engine.SubtaskCreateOptions{
			TaskID:      input.TaskID,
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			Status:      stringOrEmpty(input.Body.Status),
			Priority:    stringOrEmpty(input.Body.Priority),
			DueDate:     input.Body.DueDate,
			AssignedTo:  stringOrEmpty(input.Body.AssignedTo),
			CreatedBy:   userID,
			Progress:    intOrZero(input.Body.Progress),
		})
		if err != nil {
			return nil, handleError(err)
		}
		v, verr := subtaskView(ctx, e, s.ID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.SubTask `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-subtask",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/subtasks/{subtask_id}",
		Summary:     "Update subtask",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID    string               `path:"task_id"`
		SubtaskID string               `path:"subtask_id"`
		Body      UpdateSubtaskRequest `json:"body"`
	}) (*struct {
		Body view.SubTask `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if verr := subtaskBelongsToTask(ctx, e, input.TaskID, input.SubtaskID); verr != nil {
			return nil, verr
		}
		_, err := e.UpdateSubtask(ctx, engine.SubtaskUpdateOptions{
			ID:          input.SubtaskID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			DueDate:     input.Body.DueDate,
			AssignedTo:  input.Body.AssignedTo,
			Progress:    input.Body.Progress,
			ActorID:     userID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		v, verr := subtaskView(ctx, e, input.SubtaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.SubTask `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-subtask",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}/subtasks/{subtask_id}",
		Summary:       "Delete subtask and its comments",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID    string `path:"task_id"`
		SubtaskID string `path:"subtask_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if verr := subtaskBelongsToTask(ctx, e, input.TaskID, input.SubtaskID); verr != nil {
			return nil, verr
		}
		if err := e.DeleteSubtask(ctx, input.SubtaskID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-subtask-progress",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/subtasks/{subtask_id}/progress",
		Summary:     "Set subtask progress",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID    string             `path:"task_id"`
		SubtaskID string             `path:"subtask_id"`
		Body      SetProgressRequest `json:"body"`
	}) (*struct {
		Body view.SubTask `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if verr := subtaskBelongsToTask(ctx, e, input.TaskID, input.SubtaskID); verr != nil {
			return nil, verr
		}
		if _, err := e.UpdateSubtaskProgress(ctx, input.SubtaskID, input.Body.Progress, userID); err != nil {
			return nil, handleError(err)
		}
		v, verr := subtaskView(ctx, e, input.SubtaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.SubTask `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/subtasks/{subtask_id}/comments",
		Summary:       "Comment on a subtask",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID    string               `path:"task_id"`
		SubtaskID string               `path:"subtask_id"`
		Body      CreateCommentRequest `json:"body"`
	}) (*struct {
		Body view.SubTask `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if verr := subtaskBelongsToTask(ctx, e, input.TaskID, input.SubtaskID); verr != nil {
			return nil, verr
		}
		if _, err := e.CreateComment(ctx, engine.CommentCreateOptions{
			SubTaskID: input.SubtaskID,
			AuthorID:  userID,
			Text:      input.Body.Text,
			ParentID:  stringOrEmpty(input.Body.ParentID),
		}); err != nil {
			return nil, handleError(err)
		}
		v, verr := subtaskView(ctx, e, input.SubtaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.SubTask `json:"body"`
		}{Body: v}, nil
	})
}

func subtaskBelongsToTask(ctx context.Context, e engine.Engine, taskID, subtaskID string) huma.StatusError {
	s, err := e.Repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return handleError(err)
	}
	if s.TaskID != taskID {
		return newAPIError(http.StatusNotFound, "not_found", "subtask not found in task", nil)
	}
	return nil
}

func registerParticipants(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "add-participant",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/participants",
		Summary:     "Add a participant to a task",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string                `path:"task_id"`
		Body   AddParticipantRequest `json:"body"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		detail, err := e.AddParticipant(ctx, input.TaskID, input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		v, err := view.FromTaskDetail(detail)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-participant",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}/participants/{participant_id}",
		Summary:     "Remove a participant from a task",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID        string `path:"task_id"`
		ParticipantID string `path:"participant_id"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		detail, err := e.RemoveParticipant(ctx, input.TaskID, input.ParticipantID)
		if err != nil {
			return nil, handleError(err)
		}
		v, err := view.FromTaskDetail(detail)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})
}
