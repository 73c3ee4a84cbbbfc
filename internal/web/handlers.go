package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Iron-Ham/researchdesk/internal/errors"
	"github.com/Iron-Ham/researchdesk/internal/research"
)

const maxBodyBytes = 1 << 20

type createRequest struct {
	Topic       string                `json:"topic"`
	Constraints *research.Constraints `json:"constraints,omitempty"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

type nextStepRequest struct {
	OptionID string `json:"option_id"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.desk.Session()
	if !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no active session", Code: "no_session"})
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.desk.Session(); !ok {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "no active session", Code: "no_session"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.desk.History())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decode(w, r, &req) {
		return
	}
	c := mergeConstraints(s.desk.DefaultConstraints(), req.Constraints)
	sess, err := s.desk.CreateSession(r.Context(), req.Topic, c)
	s.respond(w, http.StatusCreated, sess, err)
}

// mergeConstraints fills zero fields of c from defaults.
func mergeConstraints(defaults research.Constraints, c *research.Constraints) research.Constraints {
	if c == nil {
		return defaults
	}
	out := *c
	if out.Budget == "" {
		out.Budget = defaults.Budget
	}
	if out.Speed == "" {
		out.Speed = defaults.Speed
	}
	if out.Rigor == 0 {
		out.Rigor = defaults.Rigor
	}
	return out
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.desk.ConfirmBriefing(r.Context(), research.BriefingDecision(req.Decision))
	s.respond(w, http.StatusOK, sess, err)
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.desk.DecideCompute(r.Context(), research.ComputeDecision(req.Decision))
	s.respond(w, http.StatusOK, sess, err)
}

func (s *Server) handleNextStep(w http.ResponseWriter, r *http.Request) {
	var req nextStepRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.desk.SelectNextStep(r.Context(), req.OptionID)
	s.respond(w, http.StatusOK, sess, err)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	sess, err := s.desk.StopSession(r.Context())
	s.respond(w, http.StatusOK, sess, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.desk.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), Code: "bad_request"})
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, okStatus int, sess research.Session, err error) {
	if err != nil {
		status, code := statusFor(err)
		resp := errorResponse{Error: err.Error(), Code: code, Retryable: errors.IsRetryable(err)}
		if !errors.IsUserFacing(err) {
			s.logger.Error("request failed", "error", err.Error())
			resp.Error = "internal error"
		}
		s.writeJSON(w, status, resp)
		return
	}
	s.writeJSON(w, okStatus, sess)
}

// statusFor maps orchestrator errors to HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errors.ErrNoSession):
		return http.StatusConflict, "no_session"
	case errors.Is(err, errors.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, errors.ErrUnknownOption):
		return http.StatusNotFound, "unknown_option"
	case errors.Is(err, errors.ErrEmptyTopic):
		return http.StatusBadRequest, "empty_topic"
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, errors.ErrContentUnavailable):
		return http.StatusBadGateway, "content_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err.Error())
	}
}
