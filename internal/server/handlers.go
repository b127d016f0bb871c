package server

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/waflow/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler holds the trigger boundary's collaborators.
type Handler struct {
	batches  BatchStarter
	history  HistoryReader
	contacts ContactStore
	messages MessageStore
	logger   *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(batches BatchStarter, history HistoryReader, contacts ContactStore, messages MessageStore, logger *zap.Logger) *Handler {
	return &Handler{
		batches:  batches,
		history:  history,
		contacts: contacts,
		messages: messages,
		logger:   logger.Named("handlers"),
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDefaults returns the persisted default message.
func (h *Handler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}
	h.writeJSON(w, http.StatusOK, schemas.DefaultsResponse{DefaultMessage: h.messages.DefaultMessage()})
}

// GetContacts returns the contact list.
func (h *Handler) GetContacts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}
	contacts, err := h.contacts.Load()
	if err != nil {
		h.logger.Error("Failed to load contacts", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, []schemas.Contact{})
		return
	}
	if contacts == nil {
		contacts = []schemas.Contact{}
	}
	h.writeJSON(w, http.StatusOK, contacts)
}

// AddContact validates and appends one contact.
func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}
	var contact schemas.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid contact data provided")
		return
	}
	saved, err := h.contacts.Add(contact)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "contact": saved})
}

// GetHistory returns outcome records newest-first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}
	entries, err := h.history.Entries()
	if err != nil {
		h.logger.Error("Failed to read history", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, []schemas.HistoryEntry{})
		return
	}
	if entries == nil {
		entries = []schemas.HistoryEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// RunSend accepts a send batch and acknowledges immediately. The persisted
// default message is updated as a side effect, matching the original client
// workflow; a save failure does not block the batch.
func (h *Handler) RunSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}
	var req schemas.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		h.writeError(w, http.StatusBadRequest, "message field cannot be empty")
		return
	}
	if len(req.Numbers) == 0 {
		h.writeError(w, http.StatusBadRequest, "no contact numbers were selected or entered")
		return
	}

	if err := h.messages.SaveDefaultMessage(req.Message); err != nil {
		h.logger.Warn("Could not persist default message", zap.Error(err))
	}

	batchID := h.batches.StartSend(req.Message, req.Numbers)
	h.writeJSON(w, http.StatusOK, schemas.AckResponse{
		Status:  "success",
		Message: "Send batch started. Check history for per-recipient outcomes.",
		BatchID: batchID,
	})
}

// RunDelete accepts a delete batch and acknowledges immediately.
func (h *Handler) RunDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}
	var req schemas.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Numbers) == 0 {
		h.writeError(w, http.StatusBadRequest, "no valid phone numbers selected for deletion")
		return
	}

	batchID := h.batches.StartDelete(req.Numbers)
	h.writeJSON(w, http.StatusOK, schemas.AckResponse{
		Status:  "success",
		Message: "Delete batch started. Check history for per-recipient outcomes.",
		BatchID: batchID,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, schemas.AckResponse{Status: "error", Message: msg})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter) {
	h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
