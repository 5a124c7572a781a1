// Package api exposes document validation and evaluation over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"popxf/internal"
	"popxf/internal/engine"
	"popxf/internal/validation"
)

// Config holds API service configuration
type Config struct {
	ValidatorOptions validation.Options
	MaxBodyBytes     int64
}

// Service routes validation and evaluation requests.
type Service struct {
	router *chi.Mux
	cfg    Config
	log    *internal.Logger
}

// NewService creates the API service and its routes.
func NewService(cfg Config) *Service {
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	s := &Service{
		router: chi.NewRouter(),
		cfg:    cfg,
		log:    internal.NewDefaultLogger("api"),
	}
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/report", s.handleReport)
	})
	return s
}

// Handler returns the root HTTP handler.
func (s *Service) Handler() http.Handler { return s.router }

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ValidateResponse is the /v1/validate payload.
type ValidateResponse struct {
	Valid      bool                   `json:"valid"`
	Violations []validation.Violation `json:"violations"`
}

func (s *Service) handleValidate(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		return
	}
	violations := validation.Validate(body, s.cfg.ValidatorOptions)
	if violations == nil {
		violations = []validation.Violation{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

// EvaluateRequest carries a document and one parameter point. Each parameter
// value is [re] or [re, im].
type EvaluateRequest struct {
	Document json.RawMessage      `json:"document"`
	Point    map[string][]float64 `json:"point"`
}

// ObservableValue is one observable's evaluation outcome.
type ObservableValue struct {
	Central       float64            `json:"central"`
	Uncertainties map[string]float64 `json:"uncertainties,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// EvaluateResponse maps observable names to values.
type EvaluateResponse struct {
	Observables map[string]ObservableValue `json:"observables"`
}

func (s *Service) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		return
	}
	var req EvaluateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "request body is not valid JSON")
		return
	}
	if len(req.Document) == 0 {
		s.writeError(w, http.StatusBadRequest, "INVALID_INPUT", "document is required")
		return
	}

	eng, err := engine.Build(req.Document, s.cfg.ValidatorOptions)
	if err != nil {
		var invalid *engine.InvalidDocumentError
		if errors.As(err, &invalid) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"code":       "INVALID_DOCUMENT",
				"violations": invalid.Violations,
			})
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, "INVALID_DOCUMENT", err.Error())
		return
	}

	point := make(map[string]complex128, len(req.Point))
	for name, parts := range req.Point {
		switch len(parts) {
		case 1:
			point[name] = complex(parts[0], 0)
		case 2:
			point[name] = complex(parts[0], parts[1])
		default:
			s.writeError(w, http.StatusBadRequest, "INVALID_INPUT",
				"point values must be [re] or [re, im]")
			return
		}
	}

	results := eng.Evaluate(point)
	resp := EvaluateResponse{Observables: make(map[string]ObservableValue, len(results))}
	for name, res := range results {
		v := ObservableValue{
			Central:       res.Central,
			Uncertainties: res.Uncertainties,
		}
		for _, warning := range res.Warnings {
			v.Warnings = append(v.Warnings, warning.String())
		}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		resp.Observables[name] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		return
	}
	eng, err := engine.Build(body, s.cfg.ValidatorOptions)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "INVALID_DOCUMENT", err.Error())
		return
	}
	renderReport(w, r, eng)
}

func (s *Service) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "INVALID_INPUT", "request body too large")
		return nil, err
	}
	return body, nil
}

func (s *Service) writeError(w http.ResponseWriter, status int, code, message string) {
	s.log.Warn("%s: %s", code, message)
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
