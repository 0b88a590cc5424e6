package handler

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"smstudio/internal/availability/service"
	"smstudio/pkg/authz"
	apperrors "smstudio/pkg/errors"
	httputil "smstudio/pkg/http"
	"smstudio/pkg/logger"
	"smstudio/pkg/middleware"
	"smstudio/pkg/model"
)

type AvailabilityHandler struct {
	calendar service.CalendarService
	resolver service.ResolverService
	log      *logger.Logger
}

func NewAvailabilityHandler(calendar service.CalendarService, resolver service.ResolverService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		calendar: calendar,
		resolver: resolver,
		log:      log,
	}
}

type okResponse struct {
	OK bool `json:"ok"`
}

type recurringResponse struct {
	OK   bool `json:"ok"`
	Days int  `json:"days"`
}

func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := model.AvailabilityFilter{
		MuaID:    httputil.QueryParam(r, "muaId", "mua_id"),
		Date:     httputil.QueryParam(r, "date"),
		DateFrom: httputil.QueryParam(r, "date_from", "dateFrom"),
		DateTo:   httputil.QueryParam(r, "date_to", "dateTo"),
	}

	days, err := h.resolver.List(r.Context(), filter)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if days == nil {
		days = []*model.AvailabilityDay{}
	}
	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

// FreeSlots answers with a single object for ?date and with one entry per day
// for ?date_from[&date_to].
func (h *AvailabilityHandler) FreeSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	muaID := httputil.QueryParam(r, "muaId", "mua_id")
	date := httputil.QueryParam(r, "date")
	from := httputil.QueryParam(r, "date_from", "dateFrom")
	to := httputil.QueryParam(r, "date_to", "dateTo")

	var (
		result any
		err    error
	)
	switch {
	case date != "":
		result, err = h.resolver.FreeSlotsForDate(r.Context(), muaID, date)
	case from != "":
		result, err = h.resolver.FreeSlotsForRange(r.Context(), muaID, from, to)
	default:
		err = apperrors.Validation("date or date_from is required", nil)
	}
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "FreeSlots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "FreeSlots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	check, err := h.resolver.IsSlotFree(r.Context(),
		httputil.QueryParam(r, "muaId", "mua_id"),
		httputil.QueryParam(r, "date"),
		httputil.QueryParam(r, "time"),
	)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, check); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) UpsertDay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var day model.AvailabilityDay
	if err := httputil.DecodeJSON(r, &day); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpsertDay", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	saved, err := h.calendar.UpsertDay(r.Context(), actor, &day)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpsertDay", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, saved); err != nil {
		h.log.Error("failed to write success response", "handler", "UpsertDay", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) AddSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.changeSlots(w, r, "AddSlots", h.calendar.AddSlots)
}

func (h *AvailabilityHandler) RemoveSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.changeSlots(w, r, "RemoveSlots", h.calendar.RemoveSlots)
}

type slotChangeFunc func(ctx context.Context, actor authz.Actor, change model.SlotChange) (*model.AvailabilityDay, error)

func (h *AvailabilityHandler) changeSlots(w http.ResponseWriter, r *http.Request, name string, apply slotChangeFunc) {
	var change model.SlotChange
	if err := httputil.DecodeJSON(r, &change); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
		}
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	day, err := apply(r.Context(), actor, change)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, day); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) DeleteDay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, _ := middleware.ActorFromContext(r.Context())
	err := h.calendar.DeleteDay(r.Context(), actor,
		httputil.QueryParam(r, "muaId", "mua_id"),
		httputil.QueryParam(r, "date"),
	)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteDay", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, okResponse{OK: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "DeleteDay", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Bulk(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var bulk model.BulkAvailability
	if err := httputil.DecodeJSON(r, &bulk); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Bulk", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	if err := h.calendar.BulkUpsert(r.Context(), actor, &bulk); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Bulk", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, okResponse{OK: true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Bulk", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Recurring(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RecurringAvailability
	if err := httputil.DecodeJSON(r, &req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Recurring", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	actor, _ := middleware.ActorFromContext(r.Context())
	days, err := h.calendar.ApplyRecurring(r.Context(), actor, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Recurring", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, recurringResponse{OK: true, Days: days}); err != nil {
		h.log.Error("failed to write success response", "handler", "Recurring", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/availability", h.List)
	router.GET("/availability/free", h.FreeSlots)
	router.GET("/availability/check", h.Check)
	router.POST("/availability", h.UpsertDay)
	router.PATCH("/availability/slots/add", h.AddSlots)
	router.PATCH("/availability/slots/remove", h.RemoveSlots)
	router.DELETE("/availability/day", h.DeleteDay)
	router.POST("/availability/bulk", h.Bulk)
	router.POST("/availability/recurring", h.Recurring)
}
