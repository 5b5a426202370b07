package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"crewdesk/internal/domain"
	"crewdesk/internal/engine"
	"crewdesk/internal/view"
)

// taskViews resolves and transforms a raw task list. Listing endpoints return
// the same fully populated shape as a single GET.
func taskViews(ctx context.Context, e engine.Engine, tasks []domain.Task) ([]view.Task, error) {
	out := make([]view.Task, 0, len(tasks))
	for _, t := range tasks {
		detail, err := e.GetTaskDetail(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		v, err := view.FromTaskDetail(detail)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func taskView(ctx context.Context, e engine.Engine, taskID string) (view.Task, huma.StatusError) {
	detail, err := e.GetTaskDetail(ctx, taskID)
	if err != nil {
		return view.Task{}, handleError(err)
	}
	v, err := view.FromTaskDetail(detail)
	if err != nil {
		return view.Task{}, handleError(err)
	}
	return v, nil
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			Status:      stringOrEmpty(input.Body.Status),
			Priority:    stringOrEmpty(input.Body.Priority),
			DueDate:     input.Body.DueDate,
			AssignedTo:  stringOrEmpty(input.Body.AssignedTo),
			CreatedBy:   userID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		v, verr := taskView(ctx, e, t.ID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		tasks, err := e.Repo.ListTasks(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		views, err := taskViews(ctx, e, tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []view.Task `json:"body"`
		}{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-for-me",
		Method:      http.MethodGet,
		Path:        "/tasks/user",
		Summary:     "Tasks for the current user",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status"`
	}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return userTasks(ctx, e, userID, input.Status)
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-for-user",
		Method:      http.MethodGet,
		Path:        "/tasks/user/{user_id}",
		Summary:     "Tasks for a user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
		Status string `query:"status"`
	}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		if _, err := e.Repo.GetUser(ctx, input.UserID); err != nil {
			return nil, handleError(err)
		}
		return userTasks(ctx, e, input.UserID, input.Status)
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-by-status",
		Method:      http.MethodGet,
		Path:        "/tasks/status/{status}",
		Summary:     "Tasks by status",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `path:"status" enum:"in-progress,completed,expired,closed"`
	}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		tasks, err := e.Repo.TasksByStatus(ctx, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		views, err := taskViews(ctx, e, tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []view.Task `json:"body"`
		}{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/search",
		Summary:     "Search tasks by title or description",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Q string `query:"q"`
	}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		if input.Q == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "q is required", nil)
		}
		tasks, err := e.Repo.SearchTasks(ctx, input.Q)
		if err != nil {
			return nil, handleError(err)
		}
		views, err := taskViews(ctx, e, tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []view.Task `json:"body"`
		}{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "overdue-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/overdue",
		Summary:     "Tasks past their due date",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		now := e.Now().UTC().Format(time.RFC3339)
		tasks, err := e.Repo.OverdueTasks(ctx, now)
		if err != nil {
			return nil, handleError(err)
		}
		views, err := taskViews(ctx, e, tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []view.Task `json:"body"`
		}{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tasks-by-due-date",
		Method:      http.MethodGet,
		Path:        "/tasks/due-date",
		Summary:     "Tasks due inside a date range",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		StartDate string `query:"start_date" format:"date-time"`
		EndDate   string `query:"end_date" format:"date-time"`
	}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		if input.StartDate == "" || input.EndDate == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "start_date and end_date are required", nil)
		}
		tasks, err := e.Repo.TasksByDueRange(ctx, input.StartDate, input.EndDate)
		if err != nil {
			return nil, handleError(err)
		}
		views, err := taskViews(ctx, e, tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []view.Task `json:"body"`
		}{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sorted-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks/sort",
		Summary:     "Tasks in an explicit order",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		SortBy string `query:"sort_by" default:"due_date" enum:"due_date,created_at,updated_at,title,status,progress,priority"`
		Order  string `query:"order" default:"asc" enum:"asc,desc"`
	}) (*struct {
		Body []view.Task `json:"body"`
	}, error) {
		tasks, err := e.Repo.TasksSorted(ctx, input.SortBy, input.Order)
		if err != nil {
			return nil, handleError(err)
		}
		views, err := taskViews(ctx, e, tasks)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []view.Task `json:"body"`
		}{Body: views}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		v, verr := taskView(ctx, e, input.TaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		_, err := e.UpdateTask(ctx, engine.TaskUpdateOptions{
			ID:          input.TaskID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      input.Body.Status,
			Priority:    input.Body.Priority,
			DueDate:     input.Body.DueDate,
			AssignedTo:  input.Body.AssignedTo,
			ActorID:     userID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		v, verr := taskView(ctx, e, input.TaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete task and everything under it",
		DefaultStatus: http.StatusNoContent,
		Errors: []int{
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct{}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteTask(ctx, input.TaskID, userID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recompute-task-progress",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/progress",
		Summary:     "Recompute task progress from subtasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body ProgressResponse `json:"body"`
	}, error) {
		progress, err := e.RecomputeTaskProgress(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProgressResponse `json:"body"`
		}{Body: ProgressResponse{TaskID: input.TaskID, Progress: progress}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-task-status",
		Method:      http.MethodPut,
		Path:        "/tasks/{task_id}/status",
		Summary:     "Set task status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string           `path:"task_id"`
		Body   SetStatusRequest `json:"body"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := e.SetTaskStatus(ctx, input.TaskID, input.Body.Status, userID); err != nil {
			return nil, handleError(err)
		}
		v, verr := taskView(ctx, e, input.TaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/assign",
		Summary:     "Assign task to a user",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TaskID string        `path:"task_id"`
		Body   AssignRequest `json:"body"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		if _, err := e.AssignTask(ctx, input.TaskID, input.Body.UserID, userID); err != nil {
			return nil, handleError(err)
		}
		v, verr := taskView(ctx, e, input.TaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{task_id}/assign",
		Summary:     "Clear task assignment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID string `path:"task_id"`
	}) (*struct {
		Body view.Task `json:"body"`
	}, error) {
		userID, authErr := userIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if _, err := e.UnassignTask(ctx, input.TaskID, userID); err != nil {
			return nil, handleError(err)
		}
		v, verr := taskView(ctx, e, input.TaskID)
		if verr != nil {
			return nil, verr
		}
		return &struct {
			Body view.Task `json:"body"`
		}{Body: v}, nil
	})
}

func userTasks(ctx context.Context, e engine.Engine, userID, status string) (*struct {
	Body []view.Task `json:"body"`
}, error) {
	tasks, err := e.Repo.TasksByUser(ctx, userID, status)
	if err != nil {
		return nil, handleError(err)
	}
	views, err := taskViews(ctx, e, tasks)
	if err != nil {
		return nil, handleError(err)
	}
	return &struct {
		Body []view.Task `json:"body"`
	}{Body: views}, nil
}
