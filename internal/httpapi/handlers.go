package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ad/go-workshop-progress/internal/auth"
	"github.com/ad/go-workshop-progress/internal/catalog"
	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/ad/go-workshop-progress/internal/services"
	"github.com/ad/go-workshop-progress/internal/store"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies; assessment payloads are stored verbatim.
const maxBodyBytes = 1 << 20

type stepResponse struct {
	ID             string   `json:"id"`
	Order          int      `json:"order"`
	Title          string   `json:"title"`
	RecordType     string   `json:"recordType,omitempty"`
	RequiredFields []string `json:"requiredFields,omitempty"`
	Terminal       bool     `json:"terminal,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	user, token, err := h.Auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.Logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *Handler) handleSteps(w http.ResponseWriter, r *http.Request) {
	workshop, ok := workshopParam(w, r)
	if !ok {
		return
	}
	var steps []stepResponse
	for _, s := range catalog.StepsFor(workshop) {
		steps = append(steps, stepResponse{
			ID:             s.ID,
			Order:          s.Order,
			Title:          s.Title,
			RecordType:     s.Completion.RecordType,
			RequiredFields: s.Completion.RequiredFields,
		})
	}
	if t, ok := catalog.TerminalStepFor(workshop); ok {
		steps = append(steps, stepResponse{ID: t.ID, Order: t.Order, Title: t.Title, Terminal: true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"workshop": workshop, "steps": steps})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	workshop, ok := workshopParam(w, r)
	if !ok {
		return
	}
	caller, _ := auth.UserFromContext(r.Context())
	progress, err := h.Users.GetWorkshopProgress(r.Context(), caller.ID, workshop)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *Handler) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordType string          `json:"recordType"`
		Payload    json.RawMessage `json:"payload"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	caller, _ := auth.UserFromContext(r.Context())
	record, err := h.Users.SubmitAssessment(r.Context(), caller.ID, req.RecordType, req.Payload)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAssessment) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": record.ID})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}
	result, err := h.Users.GetUserListPage(r.Context(), page)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleUserDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	details, err := h.Users.GetUserDetails(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h *Handler) handleSyncUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": h.Sync.SyncUserProgress(r.Context(), id)})
}

func (h *Handler) handleResetWorkshop(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	workshop, ok := workshopParam(w, r)
	if !ok {
		return
	}
	if err := h.Users.ResetWorkshopProgress(r.Context(), id, workshop); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Sync.SyncAllUsersProgressReport(r.Context()))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	workshop, ok := workshopParam(w, r)
	if !ok {
		return
	}
	stats, err := h.Stats.GetWorkshopStatistics(r.Context(), workshop)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	h.Logger.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func workshopParam(w http.ResponseWriter, r *http.Request) (models.WorkshopType, bool) {
	workshop, ok := models.ParseWorkshopType(r.PathValue("workshop"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown workshop")
	}
	return workshop, ok
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

// writeJSON writes a JSON response with the given status code.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
