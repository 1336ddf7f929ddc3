package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	h "eventlottery/internal/delivery/http/helpers"
	"eventlottery/internal/delivery/http/middleware"
	"eventlottery/internal/domain"
)

type EntrantController struct {
	Logger  *slog.Logger
	Lottery domain.LotteryService
	Users   domain.UserService
}

func NewEntrantController(logger *slog.Logger, lottery domain.LotteryService, users domain.UserService) *EntrantController {
	return &EntrantController{
		Logger:  logger,
		Lottery: lottery,
		Users:   users,
	}
}

// EntrantEventResponse pairs a public event view with the caller's status.
type EntrantEventResponse struct {
	Event  *EventResponse          `json:"event"`
	Status domain.MembershipStatus `json:"status"`
}

// JoinWaitingList godoc
// @Summary Join an event's waiting list
// @Description Adds the authenticated user to the event's waiting list. Fails if the user is already on a list for this event or the waiting list is full. A previously cancelled entrant may rejoin.
// @Tags entrant
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the entrant's status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /entrant/events/{eventID}/waiting-list [post]
func (c *EntrantController) JoinWaitingList(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := c.authAndEventID(w, r)
	if !ok {
		return
	}
	user, err := c.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unknown user")
			return
		}
		c.writeError(w, r, err)
		return
	}
	if err := c.Lottery.JoinWaitingList(r.Context(), eventID, user.Entrant()); err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": string(domain.StatusWaiting)})
}

// LeaveWaitingList godoc
// @Summary Leave an event's waiting list
// @Description Removes the authenticated user from the event's waiting list before any draw has selected them.
// @Tags entrant
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the entrant's status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /entrant/events/{eventID}/waiting-list [delete]
func (c *EntrantController) LeaveWaitingList(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := c.authAndEventID(w, r)
	if !ok {
		return
	}
	if err := c.Lottery.LeaveWaitingList(r.Context(), eventID, userID); err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": string(domain.StatusNone)})
}

// AcceptInvitation godoc
// @Summary Accept a lottery invitation
// @Description Moves the authenticated user from the invited list to the joined list. Idempotent for already-joined entrants.
// @Tags entrant
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the entrant's status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /entrant/events/{eventID}/invitation/accept [post]
func (c *EntrantController) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := c.authAndEventID(w, r)
	if !ok {
		return
	}
	if err := c.Lottery.AcceptInvitation(r.Context(), eventID, userID); err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": string(domain.StatusJoined)})
}

// DeclineInvitation godoc
// @Summary Decline a lottery invitation
// @Description Moves the authenticated user from the invited list to the cancelled list. The freed spot becomes available for backfill.
// @Tags entrant
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains the entrant's status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /entrant/events/{eventID}/invitation/decline [post]
func (c *EntrantController) DeclineInvitation(w http.ResponseWriter, r *http.Request) {
	userID, eventID, ok := c.authAndEventID(w, r)
	if !ok {
		return
	}
	if err := c.Lottery.DeclineInvitation(r.Context(), eventID, userID); err != nil {
		c.writeError(w, r, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": string(domain.StatusCancelled)})
}

// ListMyEvents godoc
// @Summary List the entrant's events
// @Description Lists every event where the authenticated user appears on any list, with the user's status in each.
// @Tags entrant
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains events with status"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /entrant/events [get]
func (c *EntrantController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return
	}
	events, err := c.Lottery.ListMyEntrantEvents(r.Context(), userID)
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	out := make([]EntrantEventResponse, 0, len(events))
	for _, ee := range events {
		out = append(out, EntrantEventResponse{Event: newEventResponse(ee.Event), Status: ee.Status})
	}
	h.WriteJSONSuccess(w, http.StatusOK, out)
}

func (c *EntrantController) authAndEventID(w http.ResponseWriter, r *http.Request) (userID, eventID string, ok bool) {
	userID, ok = middleware.UserIDFromContext(r.Context())
	if !ok {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
		return "", "", false
	}
	eventID = r.PathValue("eventID")
	if !uuidRegex.MatchString(eventID) {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid eventID")
		return "", "", false
	}
	return userID, eventID, true
}

func (c *EntrantController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotInWaitingList),
		errors.Is(err, domain.ErrNoInvitationFound):
		h.WriteJSONError(w, http.StatusNotFound, h.ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrDuplicateMember),
		errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrVersionConflict):
		h.WriteJSONError(w, http.StatusConflict, h.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
	}
}
