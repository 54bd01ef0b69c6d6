package draft

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/draftroom/go/internal/draft/reconcile"
	"github.com/mcdev12/draftroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Service is the admin HTTP surface over the draft state machine and
// the reconciliation service.
type Service struct {
	app        *App
	reconciler *reconcile.Reconciler
}

// NewService creates the draft admin service.
func NewService(app *App, reconciler *reconcile.Reconciler) *Service {
	return &Service{app: app, reconciler: reconciler}
}

// RegisterRoutes mounts the admin endpoints on the router.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/api/divisions", s.handleListDivisions)
	r.Get("/api/divisions/{divisionID}/draft/state", s.handleDivisionState)
	r.Post("/api/divisions/{divisionID}/draft/picks", s.handleSubmitPick)
	r.Post("/api/divisions/{divisionID}/draft/{action}", s.handleAction)
}

func (s *Service) handleListDivisions(w http.ResponseWriter, r *http.Request) {
	divisions, err := s.app.repo.ReadDivisions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, divisions)
}

func (s *Service) handleDivisionState(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := parseDivisionID(w, r)
	if !ok {
		return
	}
	state, err := s.app.GetDivisionState(r.Context(), divisionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type startDraftBody struct {
	PicksPerParticipant int    `json:"picks_per_participant"`
	OrderMode           string `json:"order_mode"`
}

type submitPickBody struct {
	PickNumber    int       `json:"pick_number"`
	ParticipantID uuid.UUID `json:"participant_id"`
	PlayerID      uuid.UUID `json:"player_id"`
}

func (s *Service) handleSubmitPick(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := parseDivisionID(w, r)
	if !ok {
		return
	}
	var body submitPickBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResult{Message: "invalid request body"})
		return
	}

	pick, err := s.app.SubmitPick(r.Context(), SubmitPickRequest{
		DivisionID:    divisionID,
		PickNumber:    body.PickNumber,
		ParticipantID: body.ParticipantID,
		PlayerID:      body.PlayerID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pick)
}

// handleAction dispatches the named admin action. Every action responds
// with a uniform ActionResult so the admin UI can render one toast.
func (s *Service) handleAction(w http.ResponseWriter, r *http.Request) {
	divisionID, ok := parseDivisionID(w, r)
	if !ok {
		return
	}

	action := chi.URLParam(r, "action")
	ctx := r.Context()

	switch action {
	case "generateOrder":
		order, err := s.app.GenerateOrder(ctx, divisionID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			ActionResult
			Order any `json:"order"`
		}{ActionResult{Success: true, Message: "draft order generated"}, order})

	case "clearOrder":
		if err := s.app.ClearOrder(ctx, divisionID); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ActionResult{Success: true, Message: "draft order cleared"})

	case "startDraft":
		var body startDraftBody
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, ActionResult{Message: "invalid request body"})
				return
			}
		}
		state, err := s.app.StartDraft(ctx, StartDraftRequest{
			DivisionID:          divisionID,
			PicksPerParticipant: body.PicksPerParticipant,
			OrderMode:           parseOrderMode(body.OrderMode),
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			ActionResult
			State any `json:"state"`
		}{ActionResult{Success: true, Message: "draft started"}, state})

	case "stopDraft":
		if _, err := s.app.StopDraft(ctx, divisionID); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ActionResult{Success: true, Message: "draft stopped"})

	case "syncDraft":
		summary, err := s.reconciler.SyncDivision(ctx, divisionID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			ActionResult
			Summary reconcile.Summary `json:"summary"`
		}{ActionResult{Success: true, Message: "side-channel synced"}, summary})

	default:
		writeJSON(w, http.StatusNotFound, ActionResult{Message: "unknown action"})
	}
}

// writeError maps the validation taxonomy to 400 with the sentinel's
// message; everything else is a 500 with no backend detail leaked.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if IsValidationErr(err) {
		writeJSON(w, http.StatusBadRequest, ActionResult{Message: err.Error()})
		return
	}
	log.Error().Err(err).
		Str("path", r.URL.Path).
		Msg("draft admin request failed")
	writeJSON(w, http.StatusInternalServerError, ActionResult{Message: "internal error"})
}

// parseOrderMode normalizes the request's order mode. Unknown values
// fall through as empty and take the state machine's default.
func parseOrderMode(s string) models.OrderMode {
	switch models.OrderMode(strings.ToUpper(s)) {
	case models.OrderModeSnake:
		return models.OrderModeSnake
	case models.OrderModeLinear:
		return models.OrderModeLinear
	}
	return ""
}

func parseDivisionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "divisionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ActionResult{Message: "invalid division id"})
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
