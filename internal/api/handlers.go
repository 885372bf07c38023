package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"car-advisor/internal/catalog"
	"car-advisor/internal/core"
	"car-advisor/internal/recommend"
	"car-advisor/internal/session"
	"car-advisor/internal/store"
)

var validate = validator.New()

type APIHandler struct {
	chatService *core.ChatService
	answers     *core.AnswerService
	catalog     *catalog.Catalog
	audit       *store.InteractionLog
	logger      *zap.SugaredLogger
}

func NewAPIHandler(cs *core.ChatService, as *core.AnswerService, cat *catalog.Catalog, audit *store.InteractionLog, logger *zap.SugaredLogger) *APIHandler {
	return &APIHandler{
		chatService: cs,
		answers:     as,
		catalog:     cat,
		audit:       audit,
		logger:      logger,
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// RecommendationRequest is the stateless web submission: a completed
// questionnaire in one payload. Scalar answers are pointers so that a
// missing field is distinguishable from answer 0.
type RecommendationRequest struct {
	DailyDistance   *int  `json:"daily_distance" validate:"required,min=0,max=2"`
	Usage           *int  `json:"usage" validate:"required,min=0,max=2"`
	Features        []int `json:"features" validate:"max=6,dive,min=0,max=5"`
	StylePreference *int  `json:"style_preference" validate:"required,min=0,max=3"`
}

type RecommendationResponse struct {
	Recommendation string                `json:"recommendation"`
	Ranking        recommend.Ranking     `json:"ranking"`
	Answers        RecommendationRequest `json:"answers"`
}

func (h *APIHandler) RecommendationHandler(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Please answer all required questions")
		return
	}

	ranking, err := h.chatService.RecommendDirect(recommend.Input{
		DailyDistance:   *req.DailyDistance,
		Usage:           *req.Usage,
		Features:        req.Features,
		StylePreference: *req.StylePreference,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := RecommendationResponse{Ranking: ranking, Answers: req}
	if best, ok := ranking.Best(); ok {
		resp.Recommendation = best.ID
	} else {
		resp.Recommendation = "No matching model found"
	}
	writeJSON(w, http.StatusOK, resp)
}

// AskHandler is the stateless streaming endpoint: ?model=&q= in, an SSE
// stream of token frames out.
func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	model := strings.TrimSpace(r.URL.Query().Get("model"))
	question := strings.TrimSpace(r.URL.Query().Get("q"))
	if model == "" || question == "" {
		writeError(w, http.StatusBadRequest, "model and q query parameters are required")
		return
	}
	if _, ok := h.catalog.Get(model); !ok {
		writeError(w, http.StatusNotFound, "unknown model")
		return
	}

	tokens := h.answers.Ask(r.Context(), model, question)
	h.streamTokens(w, r, tokens)
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.chatService.CreateSession()
	snap, err := h.chatService.SnapshotSession(sess.ID)
	if err != nil {
		h.logger.Errorw("failed to snapshot new session", "session", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap, err := h.chatService.SnapshotSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type EventRequest struct {
	Data string `json:"data" validate:"required"`
}

func (h *APIHandler) SessionEventHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "data field is required")
		return
	}

	res, err := h.chatService.ApplyCallback(sessionID, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, session.ErrInvalidCallback):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Errorw("failed to apply event", "session", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to apply event")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) RestartSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	res, err := h.chatService.Restart(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Errorw("failed to restart session", "session", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to restart session")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type FollowUpRequest struct {
	Question string `json:"question" validate:"required"`
}

// FollowUpHandler streams the answer to one quota-guarded follow-up
// question about the session's recommended model.
func (h *APIHandler) FollowUpHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question field is required")
		return
	}

	tokens, err := h.chatService.AskFollowUp(r.Context(), sessionID, strings.TrimSpace(req.Question))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, session.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "You've reached the follow-up question limit. Restart for a new recommendation.")
		case errors.Is(err, session.ErrNotChatting):
			writeError(w, http.StatusConflict, "Complete the questionnaire before asking follow-up questions")
		default:
			h.logger.Errorw("failed to start follow-up", "session", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to start follow-up")
		}
		return
	}

	h.streamTokens(w, r, tokens)
}

// streamTokens relays an answer stream as server-sent events, one
// newline-delimited JSON frame per token, flushing after each. The stream
// ends after a done or error frame; a dropped client is observed through
// the request context by the producer.
func (h *APIHandler) streamTokens(w http.ResponseWriter, r *http.Request, tokens <-chan core.StreamToken) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for tok := range tokens {
		payload, err := json.Marshal(tok)
		if err != nil {
			h.logger.Errorw("failed to marshal stream token", "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// ActivityHandler exposes the recent interaction log for operators.
func (h *APIHandler) ActivityHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := h.audit.RecentRecommendations(20)
	if err != nil {
		h.logger.Errorw("failed to read recommendation log", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read activity log")
		return
	}
	exchanges, err := h.audit.RecentExchanges(20)
	if err != nil {
		h.logger.Errorw("failed to read exchange log", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read activity log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": recs,
		"exchanges":       exchanges,
	})
}
