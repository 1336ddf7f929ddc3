package controllers

import (
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	h "eventlottery/internal/delivery/http/helpers"
	"eventlottery/internal/delivery/http/middleware"
	"eventlottery/internal/domain"
)

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	Lottery domain.LotteryService
}

func NewEventController(logger *slog.Logger, svc domain.EventService, lottery domain.LotteryService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		Lottery: lottery,
	}
}

// CreateEventRequest is the request body for POST /events
type CreateEventRequest struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Capacity        int        `json:"capacity"`
	WaitingCapacity int        `json:"waiting_capacity"`
	GeoRequired     bool       `json:"geo_required"`
	Category        string     `json:"category"`
	RegOpensAt      *time.Time `json:"reg_opens_at"`
	RegClosesAt     *time.Time `json:"reg_closes_at"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Capacity < 1 {
		errs = append(errs, "capacity must be at least 1")
	}
	if c.WaitingCapacity < 0 {
		errs = append(errs, "waiting_capacity must not be negative")
	}
	if c.RegOpensAt != nil && c.RegClosesAt != nil && !c.RegClosesAt.After(*c.RegOpensAt) {
		errs = append(errs, "reg_closes_at must be after reg_opens_at")
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}
type UpdateEventRequest struct {
	Description *string    `json:"description"`
	RegOpensAt  *time.Time `json:"reg_opens_at"`
	RegClosesAt *time.Time `json:"reg_closes_at"`
}

// ReplaceInviteesRequest is the request body for POST /events/{eventID}/replacements
type ReplaceInviteesRequest struct {
	InviteeIDs []string `json:"invitee_ids"`
}

// Validate implements Validator.
func (r ReplaceInviteesRequest) Validate() []string {
	if len(r.InviteeIDs) == 0 {
		return []string{"invitee_ids must not be empty"}
	}
	return nil
}

// EventResponse is an event as shown to entrants and the public. The
// membership lists carry entrant names and emails, so they are omitted here;
// organizers read them through the membership endpoint.
type EventResponse struct {
	ID           string     `json:"id"`
	OrganizerID  string     `json:"organizer_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Capacity     int        `json:"capacity"`
	QRCodeID     string     `json:"qr_code_id"`
	GeoRequired  bool       `json:"geo_required"`
	Category     string     `json:"category"`
	RegOpensAt   *time.Time `json:"reg_opens_at"`
	RegClosesAt  *time.Time `json:"reg_closes_at"`
	WaitingCount int        `json:"waiting_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

func newEventResponse(ev *domain.Event) *EventResponse {
	resp := &EventResponse{
		ID:          ev.ID,
		OrganizerID: ev.OrganizerID,
		Name:        ev.Name,
		Description: ev.Description,
		Capacity:    ev.Capacity,
		QRCodeID:    ev.QRCodeID,
		GeoRequired: ev.GeoRequired,
		Category:    ev.Category,
		RegOpensAt:  ev.RegOpensAt,
		RegClosesAt: ev.RegClosesAt,
		CreatedAt:   ev.CreatedAt,
	}
	if ev.Waiting != nil {
		resp.WaitingCount = ev.Waiting.Size()
	}
	return resp
}

func newEventResponses(events []*domain.Event) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, newEventResponse(ev))
	}
	return out
}

// ListEventsResponse is the paginated payload for GET /events
type ListEventsResponse struct {
	Events     []*EventResponse `json:"events"`
	Pagination h.PaginationMeta `json:"pagination"`
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event owned by the authenticated organizer. A QR code ID is generated for entrant sign-up. waiting_capacity 0 means unbounded.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), userID, domain.CreateEventParams{
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Capacity:        req.Capacity,
		WaitingCapacity: req.WaitingCapacity,
		GeoRequired:     req.GeoRequired,
		Category:        req.Category,
		RegOpensAt:      req.RegOpensAt,
		RegClosesAt:     req.RegClosesAt,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List events
// @Description Lists all events, newest first, with offset pagination.
// @Tags events
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} helpers.APIResponse "data contains events and pagination"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := h.ParsePagination(r)
	events, err := c.Service.ListAllEvents(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	total := len(events)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	h.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Events:     newEventResponses(events[start:end]),
		Pagination: h.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// ListMyEvents godoc
// @Summary List the current organizer's events
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the organizer's events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/mine [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	events, err := c.Service.ListMyEvents(r.Context(), userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	event, err := c.Service.GetEventByID(r.Context(), eventID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, newEventResponse(event))
}

// GetEventByQRCode godoc
// @Summary Get an event by QR code ID
// @Description Resolves a scanned QR code to its event.
// @Tags events
// @Produce json
// @Param qrCodeID path string true "QR code ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/qr/{qrCodeID} [get]
func (c *EventController) GetEventByQRCode(w http.ResponseWriter, r *http.Request) {
	qrCodeID := r.PathValue("qrCodeID")
	if !uuidRegex.MatchString(qrCodeID) {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid qrCodeID")
		return
	}
	event, err := c.Service.GetEventByQRCodeID(r.Context(), qrCodeID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, newEventResponse(event))
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Updates description and registration window of an event owned by the caller.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), eventID, userID, req.Description, req.RegOpensAt, req.RegClosesAt)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the deleted event ID"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), eventID, userID); err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"id": eventID})
}

// Draw godoc
// @Summary Run the lottery draw
// @Description Selects entrants from the waiting list uniformly at random to fill the event's remaining capacity. Only the event's organizer may draw. Selected entrants move to the invited list and are notified.
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the drawn entrants"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/draw [post]
func (c *EventController) Draw(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	drawn, err := c.Lottery.Draw(r.Context(), eventID, userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, drawn)
}

// ReplaceInvitees godoc
// @Summary Cancel invitations and backfill from the waiting list
// @Description Cancels the given invitees' invitations and draws replacements from the waiting list, one per freed spot, up to remaining capacity.
// @Tags lottery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ReplaceInviteesRequest true "Invitee IDs to cancel"
// @Success 200 {object} helpers.APIResponse "data contains the backfilled entrants"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/replacements [post]
func (c *EventController) ReplaceInvitees(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	var req ReplaceInviteesRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	backfilled, err := c.Lottery.ReplaceInvitees(r.Context(), eventID, userID, req.InviteeIDs)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, backfilled)
}

// GetMembership godoc
// @Summary Get an event's membership lists
// @Description Returns the waiting, invited, joined, and cancelled lists. Only the event's organizer may view them.
// @Tags lottery
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the four lists"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/membership [get]
func (c *EventController) GetMembership(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	membership, err := c.Lottery.GetMembership(r.Context(), eventID, userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, membership)
}

// ExportJoinedCSV godoc
// @Summary Export the joined list as CSV
// @Description Streams the event's joined entrants as a CSV attachment. Only the event's organizer may export.
// @Tags lottery
// @Produce text/csv
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {string} string "CSV with columns id, name, email"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/joined.csv [get]
func (c *EventController) ExportJoinedCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	eventID, ok := c.eventID(w, r)
	if !ok {
		return
	}
	membership, err := c.Lottery.GetMembership(r.Context(), eventID, userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="joined-`+eventID+`.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "name", "email"})
	for _, e := range membership.Joined {
		_ = cw.Write([]string{e.ID, e.Name, e.Email})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		c.Logger.ErrorContext(r.Context(), "csv export failed", "eventID", eventID, "err", err)
	}
}

func (c *EventController) eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid eventID")
		return "", false
	}
	return eventID, true
}

func (c *EventController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrForbidden):
		h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidInput):
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, "event changed concurrently, retry")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
	}
}
