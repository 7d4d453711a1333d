// Package server exposes the engine over HTTP with huma on a chi
// router. Errors use a single envelope with a stable machine-readable
// code per failure kind.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"timekeep/internal/domain"
	"timekeep/internal/engine"
	"timekeep/internal/ledger"
	"timekeep/internal/lifecycle"
	"timekeep/internal/repo"
	"timekeep/internal/search"
	"timekeep/internal/timespan"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"illegal_transition"`
	Message string         `json:"message" example:"task 3: cannot pause a task in status \"To Do\""`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the TimeKeep API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("TimeKeep API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerTasks(group, cfg.Engine)
	registerTransitions(group, cfg.Engine)
	registerWorkHistory(group, cfg.Engine)
	registerTags(group, cfg.Engine)
	registerComments(group, cfg.Engine)
	registerMetrics(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusConflict, "illegal_transition", err.Error(), map[string]any{
			"status": te.From,
			"event":  string(te.Event),
		})
	}
	switch {
	case errors.Is(err, ledger.ErrAlreadyActive):
		return newAPIError(http.StatusConflict, "already_active", err.Error(), nil)
	case errors.Is(err, ledger.ErrNoOpenInterval):
		return newAPIError(http.StatusConflict, "no_open_interval", err.Error(), nil)
	case errors.Is(err, ledger.ErrLockedWhileActive):
		return newAPIError(http.StatusConflict, "locked_while_active", err.Error(), nil)
	case errors.Is(err, timespan.ErrInvalidInterval):
		return newAPIError(http.StatusBadRequest, "invalid_interval", err.Error(), nil)
	case errors.Is(err, repo.ErrDuplicateTag):
		return newAPIError(http.StatusConflict, "duplicate_tag", err.Error(), nil)
	case errors.Is(err, ledger.ErrIntervalNotFound), errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, search.ErrInvalidPage), errors.Is(err, search.ErrInvalidPageSize):
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required") || strings.Contains(lowered, "unknown") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>TimeKeep API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		opts, err := createOptions(input.Body)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		t, err := e.CreateTask(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.GetTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		opts, err := editOptions(input.ID, input.Body)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		t, err := e.EditTask(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}",
		Summary:     "Delete task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTask(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "search-tasks",
		Method:      http.MethodPost,
		Path:        "/tasks/search",
		Summary:     "Search tasks",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SearchTasksRequest `json:"body"`
	}) (*struct {
		Body domain.PagedData[domain.Task] `json:"body"`
	}, error) {
		criteria, err := searchCriteria(e, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		page, err := e.SearchTasks(ctx, criteria)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.PagedData[domain.Task] `json:"body"`
		}{Body: page}, nil
	})
}

func searchCriteria(e engine.Engine, req SearchTasksRequest) (search.Criteria, error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = e.Settings.Tasks.PageSize
	}
	statuses, err := parseStatuses(req.Statuses)
	if err != nil {
		return search.Criteria{}, err
	}
	if len(statuses) == 0 && req.Query == nil && len(req.Tags) == 0 && req.StartBy == nil && req.DueBy == nil {
		statuses = e.Settings.DefaultStatuses()
	}
	var startBy, dueBy *search.DateRange
	if req.StartBy != nil {
		t, err := parseRequestTime("start_by", *req.StartBy)
		if err != nil {
			return search.Criteria{}, err
		}
		startBy = &search.DateRange{End: &t}
	}
	if req.DueBy != nil {
		t, err := parseRequestTime("due_by", *req.DueBy)
		if err != nil {
			return search.Criteria{}, err
		}
		dueBy = &search.DateRange{End: &t}
	}
	query := ""
	if req.Query != nil {
		query = *req.Query
	}
	return search.Normalize(page, pageSize, statuses, query, req.Tags, startBy, dueBy, req.SortField, req.SortOrder)
}

func registerTransitions(api huma.API, e engine.Engine) {
	for _, ev := range lifecycle.Events() {
		ev := ev
		huma.Register(api, huma.Operation{
			OperationID: fmt.Sprintf("%s-task", ev),
			Method:      http.MethodPost,
			Path:        fmt.Sprintf("/tasks/{id}/%s", ev),
			Summary:     fmt.Sprintf("%s%s task", strings.ToUpper(string(ev)[:1]), string(ev)[1:]),
			Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
		}, func(ctx context.Context, input *struct {
			ID int64 `path:"id"`
		}) (*struct {
			Body domain.Task `json:"body"`
		}, error) {
			t, err := e.Transition(ctx, input.ID, ev)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Task `json:"body"`
			}{Body: t}, nil
		})
	}
}

func registerWorkHistory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-work-interval",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/work-history",
		Summary:       "Add work interval",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body WorkIntervalRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		start, end, err := intervalBounds(input.Body)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		t, err := e.AddWorkHistory(ctx, input.ID, start, end)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-work-interval",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}/work-history/{interval_id}",
		Summary:     "Edit work interval",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID         int64               `path:"id"`
		IntervalID int64               `path:"interval_id"`
		Body       WorkIntervalRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		start, end, err := intervalBounds(input.Body)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		t, err := e.EditWorkHistory(ctx, input.ID, input.IntervalID, start, end)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-work-interval",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}/work-history/{interval_id}",
		Summary:     "Delete work interval",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID         int64 `path:"id"`
		IntervalID int64 `path:"interval_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.DeleteWorkHistory(ctx, input.ID, input.IntervalID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func intervalBounds(req WorkIntervalRequest) (time.Time, time.Time, error) {
	start, err := parseRequestTime("start_date", req.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseRequestTime("end_date", req.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func registerTags(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-tag",
		Method:        http.MethodPost,
		Path:          "/tags",
		Summary:       "Create tag",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body TagRequest `json:"body"`
	}) (*struct {
		Body domain.Tag `json:"body"`
	}, error) {
		tag, err := e.CreateTag(ctx, input.Body.Value)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Tag `json:"body"`
		}{Body: tag}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Tag `json:"body"`
	}, error) {
		tags, err := e.ListTags(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Tag `json:"body"`
		}{Body: tags}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-tag",
		Method:      http.MethodDelete,
		Path:        "/tags/{id}",
		Summary:     "Delete tag",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteTag(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "tag-task",
		Method:      http.MethodPut,
		Path:        "/tasks/{id}/tags/{tag_id}",
		Summary:     "Attach tag to task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID    int64 `path:"id"`
		TagID int64 `path:"tag_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.TagTask(ctx, input.ID, input.TagID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "untag-task",
		Method:      http.MethodDelete,
		Path:        "/tasks/{id}/tags/{tag_id}",
		Summary:     "Detach tag from task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID    int64 `path:"id"`
		TagID int64 `path:"tag_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.UntagTask(ctx, input.ID, input.TagID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})
}

func registerComments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-comment",
		Method:        http.MethodPost,
		Path:          "/tasks/{id}/comments",
		Summary:       "Add comment",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64          `path:"id"`
		Body CommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		c, err := e.AddComment(ctx, input.ID, input.Body.Message)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "edit-comment",
		Method:      http.MethodPatch,
		Path:        "/comments/{id}",
		Summary:     "Edit comment",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   int64          `path:"id"`
		Body CommentRequest `json:"body"`
	}) (*struct {
		Body domain.Comment `json:"body"`
	}, error) {
		c, err := e.EditComment(ctx, input.ID, input.Body.Message)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Comment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-comment",
		Method:      http.MethodDelete,
		Path:        "/comments/{id}",
		Summary:     "Delete comment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteComment(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMetrics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "metrics-summary",
		Method:      http.MethodGet,
		Path:        "/metrics/summary",
		Summary:     "Worked-time summary",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Start string   `query:"start" format:"date-time"`
		End   string   `query:"end" format:"date-time"`
		Tags  []string `query:"tags"`
	}) (*struct {
		Body engine.MetricsReport `json:"body"`
	}, error) {
		start, err := parseRequestTime("start", input.Start)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		end, err := parseRequestTime("end", input.End)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		report, err := e.Metrics(ctx, start, end, input.Tags)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.MetricsReport `json:"body"`
		}{Body: report}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List events",
	}, func(ctx context.Context, input *struct {
		Limit int64 `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		items, err := e.RecentEvents(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body struct {
			Name string `json:"name,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body APIKeyCreatedResponse `json:"body"`
	}, error) {
		key, secret, err := e.CreateAPIKey(ctx, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyCreatedResponse `json:"body"`
		}{Body: APIKeyCreatedResponse{
			ID:        key.ID,
			Name:      key.Name,
			Key:       secret,
			CreatedAt: key.CreatedAt,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		keys, err := e.ListAPIKeys(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: keys}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{id}",
		Summary:     "Delete API key",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if err := e.DeleteAPIKey(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
