package transport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shiftwise/console/internal/controller"
	"github.com/shiftwise/console/internal/screen"
	"github.com/shiftwise/console/model"
)

func handleGetScreen(screens *screen.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		caps := CapabilitiesFrom(r.Context())
		screenID := chi.URLParam(r, "screenId")

		desc, err := screens.Descriptor(caps, screenID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, desc)
	}
}

func handleScreenState(sessions *controller.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		screenID := chi.URLParam(r, "screenId")

		snap, err := sessions.State(r.Context(), rctx, screenID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, snap)
	}
}

func handleScreenEvent(sessions *controller.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rctx := model.RequestContextFrom(r.Context())
		if rctx == nil {
			WriteError(w, model.NewUnauthorizedError("missing request context"))
			return
		}
		screenID := chi.URLParam(r, "screenId")

		var ev controller.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		ev.IdempotencyKey = r.Header.Get("X-Idempotency-Key")

		snap, err := sessions.Handle(r.Context(), rctx, screenID, ev)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, snap)
	}
}
