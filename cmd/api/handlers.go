package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"content-delivery/internal/content"
	"content-delivery/internal/engagement"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	content    *content.Service
	engagement *engagement.Service
}

func NewHandler(contentSvc *content.Service, engagementSvc *engagement.Service) *Handler {
	return &Handler{content: contentSvc, engagement: engagementSvc}
}

// GetEligibleContent godoc
// @Summary      Get eligible content for a user
// @Description  Selects at most one item per requested placement by priority, validity window, targeting and frequency caps. Selection does not charge an impression.
// @Tags         Client
// @Produce      json
// @Param        user_id      query  int     true   "User ID"
// @Param        placements   query  string  true   "Comma-separated placement names"
// @Param        tier         query  string  false  "Subscription tier"
// @Param        platform     query  string  false  "Client platform"
// @Param        segment      query  string  false  "Assigned segment"
// @Param        app_version  query  string  false  "App version, dotted"
// @Param        tz           query  string  false  "IANA timezone, default UTC"
// @Success      200  {object}  map[string]content.Item
// @Failure      400  {string}  string "Invalid parameters"
// @Router       /v1/content [get]
func (h *Handler) GetEligibleContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user_id", http.StatusBadRequest)
		return
	}

	placements := splitCSV(q.Get("placements"))
	if len(placements) == 0 {
		http.Error(w, "placements is required", http.StatusBadRequest)
		return
	}

	user := content.UserContext{
		UserID:     userID,
		Tier:       q.Get("tier"),
		Platform:   q.Get("platform"),
		Segment:    q.Get("segment"),
		AppVersion: q.Get("app_version"),
		Timezone:   q.Get("tz"),
	}

	// Calculate latency
	start := time.Now()

	result, err := h.content.Select(r.Context(), user, placements)
	if err != nil {
		// A store outage must surface as an error, never as "no content".
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Response-Time", time.Since(start).String())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

type ImpressionRequest struct {
	UserID    int64  `json:"user_id"`
	ContentID int64  `json:"content_id"`
	Nonce     string `json:"nonce,omitempty"`
}

// ReportImpression godoc
// @Summary      Report that an item was rendered
// @Description  Charges one show against the user's frequency record and increments the impression counter. Idempotent when the client supplies a UUID nonce.
// @Tags         Client
// @Accept       json
// @Param        request body ImpressionRequest true "Impression report"
// @Success      200  "OK"
// @Failure      400  {string}  string "Invalid body or nonce"
// @Failure      404  {string}  string "Unknown content item"
// @Router       /v1/content/impression [post]
func (h *Handler) ReportImpression(w http.ResponseWriter, r *http.Request) {
	var req ImpressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Nonce != "" {
		if _, err := uuid.Parse(req.Nonce); err != nil {
			http.Error(w, "nonce must be a UUID", http.StatusBadRequest)
			return
		}
	}

	err := h.content.RecordImpression(r.Context(), req.UserID, req.ContentID, req.Nonce)
	if errors.Is(err, content.ErrNotFound) {
		http.Error(w, "content item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type ClickRequest struct {
	ContentID int64 `json:"content_id"`
}

// ReportClick godoc
// @Summary      Report a click on an item
// @Tags         Client
// @Accept       json
// @Param        request body ClickRequest true "Click report"
// @Success      200  "OK"
// @Router       /v1/content/click [post]
func (h *Handler) ReportClick(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.content.RecordClick(r.Context(), req.ContentID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type InteractionRequest struct {
	UserID     int64  `json:"user_id"`
	ActionType string `json:"action_type"`
	BasePoints int    `json:"base_points"`
	Timezone   string `json:"tz,omitempty"`
}

// RecordInteraction godoc
// @Summary      Record a qualifying interaction
// @Description  Advances the user's streak and credits points, applying the active incentive event for the action type.
// @Tags         Client
// @Accept       json
// @Produce      json
// @Param        request body InteractionRequest true "Interaction"
// @Success      200  {object}  engagement.InteractionResult
// @Failure      409  {string}  string "Ledger conflict, retry"
// @Router       /v1/interactions [post]
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == 0 || req.ActionType == "" {
		http.Error(w, "user_id and action_type are required", http.StatusBadRequest)
		return
	}
	if req.BasePoints < 0 {
		http.Error(w, "base_points must be >= 0", http.StatusBadRequest)
		return
	}

	result, err := h.engagement.RecordInteraction(r.Context(), req.UserID, req.ActionType, req.BasePoints, req.Timezone)
	if errors.Is(err, engagement.ErrConflict) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetEngagement godoc
// @Summary      Get a user's streak and points ledger
// @Tags         Client
// @Produce      json
// @Param        user_id  query  int  true  "User ID"
// @Success      200  {object}  engagement.State
// @Router       /v1/engagement [get]
func (h *Handler) GetEngagement(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user_id", http.StatusBadRequest)
		return
	}

	st, err := h.engagement.GetState(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

// --- Admin Handlers ---

// CreateItem godoc
// @Summary      Create a content item
// @Description  Creates an item in DB and syncs it to Redis.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        item body content.Item true "Content item"
// @Success      201  {object}  content.Item
// @Router       /admin/content [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var it content.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.content.CreateItem(r.Context(), &it); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(it)
}

// UpdateItem godoc
// @Summary      Update a content item
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        item body content.Item true "Content item"
// @Success      200  {object}  content.Item
// @Router       /admin/content [put]
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var it content.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if it.ID == 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	err := h.content.UpdateItem(r.Context(), &it)
	if errors.Is(err, content.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(it)
}

// DeleteItem godoc
// @Summary      Delete a content item
// @Tags         Admin
// @Param        id   query      int  true  "Content ID"
// @Success      204  "No Content"
// @Router       /admin/content [delete]
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.content.DeleteItem(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListItems godoc
// @Summary      List all content items
// @Tags         Admin
// @Produce      json
// @Success      200  {array}  content.Item
// @Router       /admin/content [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	list, err := h.content.ListItems(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(list)
}

// GetItem godoc
// @Summary      Get content item detail
// @Tags         Admin
// @Produce      json
// @Param        id   query      int  true  "Content ID"
// @Success      200  {object}  content.Item
// @Router       /admin/content/detail [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	it, err := h.content.GetItem(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if it == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(it)
}

type ResetImpressionsRequest struct {
	UserID    int64 `json:"user_id,omitempty"` // 0 = all users
	ContentID int64 `json:"content_id"`
}

// ResetImpressions godoc
// @Summary      Reset frequency records for an item
// @Description  Zeroes times-shown and last-shown for one user, or for all users when user_id is omitted.
// @Tags         Admin
// @Accept       json
// @Param        request body ResetImpressionsRequest true "Reset request"
// @Success      200  "OK"
// @Router       /admin/content/reset-impressions [post]
func (h *Handler) ResetImpressions(w http.ResponseWriter, r *http.Request) {
	var req ResetImpressionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ContentID == 0 {
		http.Error(w, "content_id is required", http.StatusBadRequest)
		return
	}

	if err := h.content.ResetImpressions(r.Context(), req.UserID, req.ContentID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logrus.WithFields(logrus.Fields{"content_id": req.ContentID, "user_id": req.UserID}).
		Info("frequency records reset")
	w.WriteHeader(http.StatusOK)
}

// CreateEvent godoc
// @Summary      Create an incentive event
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        event body engagement.IncentiveEvent true "Incentive event"
// @Success      201  {object}  engagement.IncentiveEvent
// @Router       /admin/incentives [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var e engagement.IncentiveEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.engagement.CreateEvent(r.Context(), &e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(e)
}

// UpdateEvent godoc
// @Summary      Update an incentive event
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        event body engagement.IncentiveEvent true "Incentive event"
// @Success      200  {object}  engagement.IncentiveEvent
// @Router       /admin/incentives [put]
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var e engagement.IncentiveEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if e.ID == 0 {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if err := h.engagement.UpdateEvent(r.Context(), &e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(e)
}

// DeleteEvent godoc
// @Summary      Delete an incentive event
// @Tags         Admin
// @Param        id   query      int  true  "Event ID"
// @Success      204  "No Content"
// @Router       /admin/incentives [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.engagement.DeleteEvent(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents godoc
// @Summary      List all incentive events
// @Tags         Admin
// @Produce      json
// @Success      200  {array}  engagement.IncentiveEvent
// @Router       /admin/incentives [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.engagement.ListEvents(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(list)
}

// GetEvent godoc
// @Summary      Get incentive event detail
// @Tags         Admin
// @Produce      json
// @Param        id   query      int  true  "Event ID"
// @Success      200  {object}  engagement.IncentiveEvent
// @Router       /admin/incentives/detail [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	e, err := h.engagement.GetEvent(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if e == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(e)
}

// SyncCatalog godoc
// @Summary      Sync DB to Redis
// @Description  Rebuilds the Redis hot path from the PostgreSQL catalog.
// @Tags         Admin
// @Success      200  "Synced"
// @Router       /admin/sync [post]
func (h *Handler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.content.SyncItems(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Synced DB to Redis"))
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
