package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/models"
	"github.com/snappy-loop/poster/internal/services"
	"github.com/snappy-loop/poster/internal/validation"
)

// stateResponse is AppState plus links derived for API clients.
type stateResponse struct {
	models.AppState
	CanGenerate  bool   `json:"can_generate"`
	ImageURL     string `json:"image_url,omitempty"`
	ImageDataURL string `json:"image_data_url,omitempty"`
}

func newStateResponse(st models.AppState) stateResponse {
	resp := stateResponse{AppState: st, CanGenerate: st.CanGenerate()}
	if st.Image != nil {
		resp.ImageURL = imageURL(st)
	}
	return resp
}

// generateRequest is the body of POST /v1/generate. Empty fields keep the session's current value.
type generateRequest struct {
	Topic *string `json:"topic"`
	Grade string  `json:"grade"`
}

// GetState handles GET /v1/state. With ?inline=true the image is embedded as a data: URL.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	st := h.controller(w, r).State()
	resp := newStateResponse(st)
	if inline, _ := strconv.ParseBool(r.URL.Query().Get("inline")); inline && st.Image != nil {
		resp.ImageDataURL = st.Image.DataURL()
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListGrades handles GET /v1/grades
func (h *Handler) ListGrades(w http.ResponseWriter, r *http.Request) {
	type grade struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	}
	levels := models.GradeLevels()
	out := make([]grade, 0, len(levels))
	for _, g := range levels {
		out = append(out, grade{Key: g.Key(), Label: string(g)})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"grades": out})
}

// PostGenerate handles POST /v1/generate. Returns 202 with the loading state,
// or with ?wait=true blocks until the generation settles and returns 200 or 502.
func (h *Handler) PostGenerate(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)

	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st := ctrl.State()
	topic, grade := st.Topic, st.Grade
	if req.Topic != nil {
		topic = strings.TrimSpace(*req.Topic)
	}
	if req.Grade != "" {
		parsed, err := models.ParseGradeLevel(req.Grade)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		grade = parsed
	}
	if err := ctrl.Update(topic, grade); err != nil {
		h.writeGenerateError(w, err)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait {
		if _, err := ctrl.Generate(r.Context()); err != nil {
			h.writeGenerateError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, newStateResponse(ctrl.State()))
		return
	}

	if err := ctrl.GenerateAndWait(r.Context()); err != nil {
		var verr *validation.ValidationError
		if errors.As(err, &verr) || errors.Is(err, services.ErrGenerationInProgress) {
			h.writeGenerateError(w, err)
			return
		}
		if r.Context().Err() != nil {
			// client went away; the generation keeps running and settles on its own
			log.Debug().Err(err).Msg("Client left before generation settled (wait=true)")
			return
		}
		log.Warn().Err(err).Msg("Generation failed (wait=true)")
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": services.FailureNotice,
			"state": newStateResponse(ctrl.State()),
		})
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(ctrl.State()))
}

func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"errors": verr.Errors,
		})
	case errors.Is(err, services.ErrGenerationInProgress):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUnknownGrade):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Failed to start generation")
		writeJSONError(w, http.StatusInternalServerError, "failed to start generation")
	}
}
