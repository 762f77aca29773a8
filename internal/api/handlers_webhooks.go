package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mehedi/hookpulse/internal/delivery"
	"github.com/mehedi/hookpulse/internal/models"
	"github.com/mehedi/hookpulse/internal/storage"
)

type WebhookHandler struct {
	store      storage.WebhookStore
	dispatcher *delivery.Dispatcher
}

func NewWebhookHandler(store storage.WebhookStore, dispatcher *delivery.Dispatcher) *WebhookHandler {
	return &WebhookHandler{store: store, dispatcher: dispatcher}
}

type webhookRequest struct {
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`
	Secret  string            `json:"secret"`
}

func (req *webhookRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.URL == "" {
		return "url is required"
	}
	if req.Method == "" {
		req.Method = http.MethodPost
	}
	req.Method = strings.ToUpper(req.Method)
	if !models.ValidMethod(req.Method) {
		return "method must be one of GET, POST, PUT, DELETE"
	}
	return ""
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now().UTC()
	wh := &models.Webhook{
		ID:        models.NewID("wh"),
		AccountID: acc.ID,
		Name:      req.Name,
		URL:       req.URL,
		Method:    req.Method,
		Headers:   req.Headers,
		Body:      req.Body,
		Secret:    req.Secret,
		Status:    models.WebhookActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateWebhook(r.Context(), wh); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create webhook")
		return
	}

	writeJSON(w, http.StatusCreated, wh)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	wh, err := h.store.GetWebhook(r.Context(), acc.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get webhook")
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	webhooks, err := h.store.ListWebhooks(r.Context(), acc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}
	if webhooks == nil {
		webhooks = []models.Webhook{}
	}
	writeJSON(w, http.StatusOK, webhooks)
}

func (h *WebhookHandler) Update(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	wh, err := h.store.GetWebhook(r.Context(), acc.ID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get webhook")
		return
	}

	var req webhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	wh.Name = req.Name
	wh.URL = req.URL
	wh.Method = req.Method
	wh.Headers = req.Headers
	wh.Body = req.Body
	wh.Secret = req.Secret

	if err := h.store.UpdateWebhook(r.Context(), wh); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update webhook")
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.store.DeleteWebhook(r.Context(), acc.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete webhook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status models.WebhookStatus `json:"status"`
}

func (h *WebhookHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != models.WebhookActive && req.Status != models.WebhookDisabled {
		writeError(w, http.StatusBadRequest, "status must be active or disabled")
		return
	}

	if err := h.store.SetWebhookStatus(r.Context(), acc.ID, chi.URLParam(r, "id"), req.Status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "webhook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

type dispatchRequest struct {
	Payload map[string]string `json:"payload"`
}

// Dispatch triggers a full delivery cycle with the caller's payload.
// The response carries the delivery result even when delivery failed;
// only precondition problems map to error statuses.
func (h *WebhookHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req dispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.runDispatch(w, r, acc.ID, chi.URLParam(r, "id"), req.Payload)
}

// Test triggers a delivery cycle with the conventional test payload.
func (h *WebhookHandler) Test(w http.ResponseWriter, r *http.Request) {
	acc := AccountFromContext(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	payload := map[string]string{
		"test":      "true",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	h.runDispatch(w, r, acc.ID, chi.URLParam(r, "id"), payload)
}

func (h *WebhookHandler) runDispatch(w http.ResponseWriter, r *http.Request, accountID, webhookID string, payload map[string]string) {
	result, err := h.dispatcher.Dispatch(r.Context(), accountID, webhookID, payload)
	if err != nil {
		switch {
		case errors.Is(err, delivery.ErrWebhookNotFound):
			writeError(w, http.StatusNotFound, "webhook not found")
		case errors.Is(err, delivery.ErrWebhookDisabled):
			writeError(w, http.StatusConflict, "webhook is disabled")
		default:
			writeError(w, http.StatusInternalServerError, "failed to dispatch webhook")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}
