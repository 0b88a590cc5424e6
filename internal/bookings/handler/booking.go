package handler

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"smstudio/internal/bookings/service"
	apperrors "smstudio/pkg/errors"
	httputil "smstudio/pkg/http"
	"smstudio/pkg/logger"
	"smstudio/pkg/middleware"
	"smstudio/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func bookingID(ps httprouter.Params) (int64, error) {
	raw := ps.ByName("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput("invalid booking id: " + raw)
	}
	return id, nil
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in model.BookingInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.Create(r.Context(), actor, &in)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

// Get serves GET /bookings/:id. httprouter cannot register static siblings
// of a wildcard segment, so the calendar and stats reports are dispatched here.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	switch ps.ByName("id") {
	case "calendar":
		h.Calendar(w, r, ps)
		return
	case "stats":
		h.Stats(w, r, ps)
		return
	}

	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.GetByID(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", booking)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	filter := model.BookingFilter{
		MuaID:      httputil.QueryParam(r, "muaId", "mua_id"),
		CustomerID: httputil.QueryParam(r, "customerId", "customer_id"),
		Statuses:   httputil.QueryList(r, "status"),
		DateFrom:   httputil.QueryParam(r, "date_from", "dateFrom"),
		DateTo:     httputil.QueryParam(r, "date_to", "dateTo"),
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	bookings, total, err := h.service.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := middleware.ActorFromContext(r.Context())
	events, err := h.service.Calendar(r.Context(), actor,
		httputil.QueryParam(r, "date_from", "dateFrom", "from"),
		httputil.QueryParam(r, "date_to", "dateTo", "to"),
	)
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}
	h.writeSuccess(w, "Calendar", events)
}

func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := middleware.ActorFromContext(r.Context())
	stats, err := h.service.Stats(r.Context(), actor,
		httputil.QueryParam(r, "date_from", "dateFrom", "from"),
		httputil.QueryParam(r, "date_to", "dateTo", "to"),
	)
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}
	h.writeSuccess(w, "Stats", stats)
}

// Post serves POST /bookings/:id, which only exists as /bookings/quote.
func (h *BookingHandler) Post(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if ps.ByName("id") != "quote" {
		h.writeError(w, "Post", apperrors.NotFound("Route"))
		return
	}
	h.Quote(w, r, ps)
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.QuoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	quote, err := h.service.Quote(r.Context(), req)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}
	h.writeSuccess(w, "Quote", quote)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}
	var change model.StatusChange
	if err := httputil.DecodeJSON(r, &change); err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.UpdateStatus(r.Context(), actor, id, change)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}
	h.writeSuccess(w, "UpdateStatus", booking)
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}
	var req model.Reschedule
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.Reschedule(r.Context(), actor, id, req)
	if err != nil {
		h.writeError(w, "Reschedule", err)
		return
	}
	h.writeSuccess(w, "Reschedule", booking)
}

func (h *BookingHandler) MarkInProgress(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "MarkInProgress", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.MarkInProgress(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, "MarkInProgress", err)
		return
	}
	h.writeSuccess(w, "MarkInProgress", booking)
}

func (h *BookingHandler) MarkComplete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "MarkComplete", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.MarkComplete(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, "MarkComplete", err)
		return
	}
	h.writeSuccess(w, "MarkComplete", booking)
}

func (h *BookingHandler) RecordPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}
	var in model.PaymentInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.RecordPayment(r.Context(), actor, id, in)
	if err != nil {
		h.writeError(w, "RecordPayment", err)
		return
	}
	h.writeSuccess(w, "RecordPayment", booking)
}

func (h *BookingHandler) UpdatePricing(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "UpdatePricing", err)
		return
	}
	var upd model.PricingUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		h.writeError(w, "UpdatePricing", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	booking, err := h.service.UpdatePricing(r.Context(), actor, id, upd)
	if err != nil {
		h.writeError(w, "UpdatePricing", err)
		return
	}
	h.writeSuccess(w, "UpdatePricing", booking)
}

func (h *BookingHandler) ListCollaborators(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "ListCollaborators", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	list, err := h.service.ListCollaborators(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, "ListCollaborators", err)
		return
	}
	h.writeSuccess(w, "ListCollaborators", list)
}

func (h *BookingHandler) InviteCollaborators(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "InviteCollaborators", err)
		return
	}
	var invite model.CollaboratorInvite
	if err := httputil.DecodeJSON(r, &invite); err != nil {
		h.writeError(w, "InviteCollaborators", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	list, err := h.service.InviteCollaborators(r.Context(), actor, id, invite)
	if err != nil {
		h.writeError(w, "InviteCollaborators", err)
		return
	}
	h.writeSuccess(w, "InviteCollaborators", list)
}

func (h *BookingHandler) RemoveCollaborator(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "RemoveCollaborator", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	if err := h.service.RemoveCollaborator(r.Context(), actor, id, ps.ByName("profileId")); err != nil {
		h.writeError(w, "RemoveCollaborator", err)
		return
	}
	h.writeSuccess(w, "RemoveCollaborator", okResponse{OK: true})
}

func (h *BookingHandler) RespondInvite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := bookingID(ps)
	if err != nil {
		h.writeError(w, "RespondInvite", err)
		return
	}
	var resp model.InviteResponse
	if err := httputil.DecodeJSON(r, &resp); err != nil {
		h.writeError(w, "RespondInvite", err)
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	collaborator, err := h.service.RespondInvite(r.Context(), actor, id, resp)
	if err != nil {
		h.writeError(w, "RespondInvite", err)
		return
	}
	h.writeSuccess(w, "RespondInvite", collaborator)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/bookings", h.Create)
	router.GET("/bookings", h.List)
	router.GET("/bookings/:id", h.Get)
	router.POST("/bookings/:id", h.Post)
	router.PUT("/bookings/:id", h.UpdatePricing)
	router.PATCH("/bookings/:id/status", h.UpdateStatus)
	router.PATCH("/bookings/:id/reschedule", h.Reschedule)
	router.POST("/bookings/:id/in-progress", h.MarkInProgress)
	router.POST("/bookings/:id/complete", h.MarkComplete)
	router.POST("/bookings/:id/payment", h.RecordPayment)
	router.GET("/bookings/:id/collaborators", h.ListCollaborators)
	router.POST("/bookings/:id/collaborators", h.InviteCollaborators)
	router.PATCH("/bookings/:id/collaborators/respond", h.RespondInvite)
	router.DELETE("/bookings/:id/collaborators/:profileId", h.RemoveCollaborator)
}
