package server

import (
	"encoding/json"
	"net/http"

	apperr "github.com/GriffinCanCode/inkglow/internal/errors"
	"github.com/GriffinCanCode/inkglow/internal/signature"
	"github.com/GriffinCanCode/inkglow/internal/trace"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handleSignatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, signaturesMessage(s.engine.Signatures()))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var m SettingsMessage
	if err := decode(w, r, &m); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.applySettings(r.Context(), m); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	label := signature.Label(r.PathValue("label"))
	if err := s.calibrate(r.Context(), label); err != nil {
		writeError(w, r, err)
		return
	}
	state, pending := s.engine.CalibrationState()
	writeJSON(w, http.StatusAccepted, CalibrationMessage{Type: "calibration", State: state.String(), Label: pending})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	var p point
	if err := decode(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	sig, err := s.sample(r.Context(), p.X, p.Y)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SampledMessage{Type: "sampled", Signature: sig})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancel(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	state, _ := s.engine.CalibrationState()
	writeJSON(w, http.StatusOK, CalibrationMessage{Type: "calibration", State: state.String()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(err, apperr.InvalidArgument, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	trace.Logger(r.Context()).Debug("request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, apperr.HTTPStatusOf(err), errorMessage(err))
}
