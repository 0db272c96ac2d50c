package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"tagboard/internal/app"
	"tagboard/internal/config"
)

// Config for the HTTP handler.
type Config struct {
	App     *app.Context
	Session SessionConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"no_session"`
	Message string         `json:"message" example:"no coder id"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError is the JSON error envelope for API routes. HTML routes respond
// with plain status text instead.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	return &apiError{status: status, Body: apiErrorBody{Code: code, Message: message, Details: details}}
}

type requestKey struct{}

type server struct {
	app     *app.Context
	session SessionConfig
}

// New returns the HTTP handler: HTML entry/annotation routes plus the JSON
// operations registered through huma on the same router.
func New(cfg Config) (http.Handler, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app context is required")
	}
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.App.Logger
	}
	s := &server{app: cfg.App, session: cfg.Session}

	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	// Make the original *http.Request reachable from huma handlers so the
	// session cookie can be checked there.
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	router.Get("/", s.home)
	router.Post("/", s.home)
	router.Get("/annotate", s.annotate)
	router.Get("/{coder_id}", s.pseudonymEntry)

	hcfg := huma.DefaultConfig("Tagboard API", "0.1.0")
	hcfg.OpenAPIPath = "/api/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)

	registerHealth(api)
	s.registerSubmit(api)
	s.registerBatch(api)
	s.registerProgress(api)

	return router, nil
}

func (s *server) coderFromRequest(ctx context.Context) string {
	r, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok {
		return ""
	}
	return s.session.coderID(r)
}

// home is the identity entry point. In free_entry mode it renders the login
// form and accepts the coder_id form post; in pseudonym mode it only explains
// how to get a link.
func (s *server) home(w http.ResponseWriter, r *http.Request) {
	if s.app.Config.CoderMode == config.ModeFreeEntry {
		if r.Method == http.MethodPost {
			coderID := strings.TrimSpace(r.FormValue("coder_id"))
			if coderID == "" {
				http.Error(w, "Coder ID required", http.StatusBadRequest)
				return
			}
			if err := s.session.establish(w, coderID); err != nil {
				http.Error(w, "could not establish session", http.StatusInternalServerError)
				return
			}
			http.Redirect(w, r, "/annotate", http.StatusFound)
			return
		}
		s.renderPage(w, "login", loginPage{ProjectName: s.app.Config.ProjectName})
		return
	}
	s.renderPage(w, "pseudonym_info", loginPage{ProjectName: s.app.Config.ProjectName})
}

// pseudonymEntry establishes a session from a path segment. The id is checked
// against the roster only when a roster was loaded.
func (s *server) pseudonymEntry(w http.ResponseWriter, r *http.Request) {
	if s.app.Config.CoderMode != config.ModePseudonym {
		http.Error(w, "This project is not using pseudonyms.", http.StatusBadRequest)
		return
	}
	coderID := chi.URLParam(r, "coder_id")
	if len(s.app.Roster) > 0 {
		if _, ok := s.app.Roster[coderID]; !ok {
			http.Error(w, "Unauthorized coder ID", http.StatusForbidden)
			return
		}
	}
	if err := s.session.establish(w, coderID); err != nil {
		http.Error(w, "could not establish session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/annotate", http.StatusFound)
}

func (s *server) annotate(w http.ResponseWriter, r *http.Request) {
	coderID := s.session.coderID(r)
	if coderID == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	batch := s.app.Engine.BuildBatch(coderID, s.batchSize(r.URL.Query().Get("n")))
	if batch == nil {
		s.renderPage(w, "done", donePage{ProjectName: s.app.Config.ProjectName, CoderID: coderID})
		return
	}
	batchJSON, err := json.Marshal(batch)
	if err != nil {
		http.Error(w, "could not encode batch", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "annotate", annotatePage{
		Batch: batchView{
			ProjectName: batch.ProjectName,
			CoderID:     batch.CoderID,
			AllowSkip:   batch.AllowSkip,
		},
		HeaderHTML: template.HTML(batch.PageHeaderHTML),
		DescHTML:   template.HTML(batch.PageDescHTML),
		BatchJSON:  template.JS(batchJSON),
	})
}

// batchSize applies the optional per-request override: digits only,
// otherwise the configured default.
func (s *server) batchSize(override string) int {
	if override != "" && isDigits(override) {
		n, err := strconv.Atoi(override)
		if err == nil {
			return n
		}
	}
	return s.app.Config.BatchSize
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (s *server) renderPage(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
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

func (s *server) registerSubmit(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "submit-batch",
		Method:      http.MethodPost,
		Path:        "/submit",
		Summary:     "Submit a batch of answers",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body SubmitRequest `json:"body"`
	}) (*struct {
		Body SubmitResponse `json:"body"`
	}, error) {
		coderID := s.coderFromRequest(ctx)
		if coderID == "" {
			return nil, newAPIError(http.StatusBadRequest, "no_session", "no coder id", nil)
		}
		id, err := s.app.Engine.Submit(coderID, submission(input.Body))
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "write_failed", "could not append to output log", map[string]any{"error": err.Error()})
		}
		s.app.Logger.Printf("submission %s: coder=%s items=%d", id, coderID, len(input.Body.Items))
		return &struct {
			Body SubmitResponse `json:"body"`
		}{Body: SubmitResponse{Status: "success"}}, nil
	})
}

func (s *server) registerBatch(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "next-batch",
		Method:      http.MethodGet,
		Path:        "/api/batch",
		Summary:     "Next batch for the session coder",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		N string `query:"n" doc:"Batch size override, digits only"`
	}) (*struct {
		Body BatchResponse `json:"body"`
	}, error) {
		coderID := s.coderFromRequest(ctx)
		if coderID == "" {
			return nil, newAPIError(http.StatusBadRequest, "no_session", "no coder id", nil)
		}
		batch := s.app.Engine.BuildBatch(coderID, s.batchSize(input.N))
		resp := BatchResponse{Done: batch == nil, Batch: batch}
		return &struct {
			Body BatchResponse `json:"body"`
		}{Body: resp}, nil
	})
}

func (s *server) registerProgress(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "coder-progress",
		Method:      http.MethodGet,
		Path:        "/api/progress",
		Summary:     "Completion counts for the session coder",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ProgressResponse `json:"body"`
	}, error) {
		coderID := s.coderFromRequest(ctx)
		if coderID == "" {
			return nil, newAPIError(http.StatusBadRequest, "no_session", "no coder id", nil)
		}
		return &struct {
			Body ProgressResponse `json:"body"`
		}{Body: ProgressResponse{Progress: s.app.Engine.CoderProgress(coderID)}}, nil
	})
}
