package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/prepcoach/prepcoach/internal/domain"
	"github.com/prepcoach/prepcoach/internal/domain/search/filter"
	"github.com/prepcoach/prepcoach/internal/theory"
	evaluateuc "github.com/prepcoach/prepcoach/internal/usecase/evaluate"
	healthuc "github.com/prepcoach/prepcoach/internal/usecase/health"
	searchuc "github.com/prepcoach/prepcoach/internal/usecase/search"
)

// ErrorCode identifies the failure class in an error response body.
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeQuestionNotFound   ErrorCode = "question_not_found"
	CodeUnknownSubject     ErrorCode = "unknown_subject"
	CodeNotEvaluable       ErrorCode = "question_not_evaluable"
	CodeEmbeddingProvider  ErrorCode = "embedding_provider_error"
	CodeJudgeProvider      ErrorCode = "judge_provider_error"
	CodeNormalizationError ErrorCode = "audio_normalization_failed"
	CodeTranscriptionError ErrorCode = "audio_transcription_failed"
	CodeInvalidVerdict     ErrorCode = "invalid_judge_response"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope for every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// CorpusLister exposes the corpus read surface the handlers need.
type CorpusLister interface {
	All() []*domain.Question
	ByID(id string) (*domain.Question, error)
}

// TheoryPicker exposes the theory bank read surface.
type TheoryPicker interface {
	PickRandom(subject string, excludeIDs map[string]struct{}) (*domain.TheoryQuestion, error)
	Subjects() []string
}

// Server hosts the HTTP API handlers.
type Server struct {
	corpus        CorpusLister
	theory        TheoryPicker
	search        *searchuc.Service
	evaluate      *evaluateuc.Service
	health        *healthuc.Service
	maxAudioBytes int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ TheoryPicker = (*theory.Bank)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	corpus CorpusLister,
	theoryBank TheoryPicker,
	search *searchuc.Service,
	evaluate *evaluateuc.Service,
	health *healthuc.Service,
	maxAudioBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		corpus:        corpus,
		theory:        theoryBank,
		search:        search,
		evaluate:      evaluate,
		health:        health,
		maxAudioBytes: maxAudioBytes,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrQuestionNotFound, http.StatusNotFound, CodeQuestionNotFound),
		sentinelHandler(domain.ErrUnknownSubject, http.StatusNotFound, CodeUnknownSubject),
		sentinelHandler(domain.ErrMissingJudgeContext, http.StatusUnprocessableEntity, CodeNotEvaluable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(domain.ErrJudgeProviderError, http.StatusBadGateway, CodeJudgeProvider),
		sentinelHandler(domain.ErrNormalizationFailed, http.StatusUnprocessableEntity, CodeNormalizationError),
		sentinelHandler(domain.ErrTranscriptionFailed, http.StatusBadGateway, CodeTranscriptionError),
		sentinelHandler(domain.ErrInvalidJudgeResponse, http.StatusBadGateway, CodeInvalidVerdict),
	}
	return s
}

// Routes mounts all API handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/questions", s.ListQuestions)
		r.Get("/questions/{id}", s.GetQuestion)
		r.Get("/theory/{subject}/random", s.RandomTheoryQuestion)
		r.Post("/evaluate", s.EvaluateSubmission)
		r.Post("/theory/evaluate", s.EvaluateTheory)
	})
}

// searchRequest mirrors the POST /api/search body.
type searchRequest struct {
	Query   string         `json:"query"`
	Filters filter.Filters `json:"filters"`
	TopK    int            `json:"topK"`
}

// Search handles POST /api/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), req.Query, req.Filters, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// questionListResponse mirrors GET /api/questions.
type questionListResponse struct {
	Total     int                        `json:"total"`
	Questions []domain.SanitizedQuestion `json:"questions"`
}

// ListQuestions handles GET /api/questions.
func (s *Server) ListQuestions(w http.ResponseWriter, r *http.Request) {
	all := s.corpus.All()
	items := make([]domain.SanitizedQuestion, len(all))
	for i, q := range all {
		items[i] = q.Sanitized()
	}
	writeJSON(w, http.StatusOK, questionListResponse{Total: len(items), Questions: items})
}

// GetQuestion handles GET /api/questions/{id}.
func (s *Server) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.corpus.ByID(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q.Sanitized())
}

// randomTheoryResponse mirrors GET /api/theory/{subject}/random.
// Question is null with AllAnswered set once every bank entry has been
// excluded.
type randomTheoryResponse struct {
	Question    *domain.SanitizedTheoryQuestion `json:"question"`
	AllAnswered bool                            `json:"allAnswered"`
}

// RandomTheoryQuestion handles GET /api/theory/{subject}/random.
// The exclude query param is a comma-separated list of already-answered
// question IDs.
func (s *Server) RandomTheoryQuestion(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	exclude := parseExcludeIDs(r.URL.Query().Get("exclude"))

	q, err := s.theory.PickRandom(subject, exclude)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if q == nil {
		writeJSON(w, http.StatusOK, randomTheoryResponse{AllAnswered: true})
		return
	}

	sq := q.Sanitized()
	writeJSON(w, http.StatusOK, randomTheoryResponse{Question: &sq})
}

// EvaluateSubmission handles POST /api/evaluate (multipart form with
// questionId, code and an audio file).
func (s *Server) EvaluateSubmission(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxAudioBytes+1<<20)
	if err := r.ParseMultipartForm(s.maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	questionID := r.FormValue("questionId")
	code := r.FormValue("code")

	audio, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "audio recording is required")
		return
	}
	defer func() { _ = audio.Close() }()

	if header.Size > s.maxAudioBytes {
		writeError(w, http.StatusRequestEntityTooLarge, CodeValidationFailed, "audio file too large")
		return
	}

	eval, err := s.evaluate.EvaluateSubmission(r.Context(), questionID, code, audio, header.Size)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// theoryEvaluateRequest mirrors the POST /api/theory/evaluate body.
type theoryEvaluateRequest struct {
	Subject    string `json:"subject"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// EvaluateTheory handles POST /api/theory/evaluate.
func (s *Server) EvaluateTheory(w http.ResponseWriter, r *http.Request) {
	var req theoryEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	eval, err := s.evaluate.EvaluateTheory(r.Context(), req.Subject, req.QuestionID, req.Answer)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eval)
}

// healthResponse mirrors GET /health.
type healthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	Questions     int               `json:"questions"`
	WithEmbedding int               `json:"withEmbedding"`
}

// Health handles GET /health. Always 200: a degraded report is still a
// report, orchestrators read the status field.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(report.Status),
		Checks:        checks,
		Questions:     report.Questions,
		WithEmbedding: report.WithEmbedding,
	})
}

func parseExcludeIDs(raw string) map[string]struct{} {
	if raw == "" {
		return nil
	}
	ids := make(map[string]struct{})
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the sentinel text for known domain errors
// and a generic message otherwise. Internal detail never reaches
// clients.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrQuestionNotFound,
		domain.ErrUnknownSubject,
		domain.ErrMissingJudgeContext,
		domain.ErrEmbeddingProviderError,
		domain.ErrNormalizationFailed,
		domain.ErrTranscriptionFailed,
		domain.ErrJudgeProviderError,
		domain.ErrInvalidJudgeResponse,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
