package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/mauka-works/intake-engine/internal/capture"
	"github.com/mauka-works/intake-engine/internal/flow"
	"github.com/mauka-works/intake-engine/internal/match"
	"github.com/mauka-works/intake-engine/internal/resume"
	"github.com/mauka-works/intake-engine/internal/speech"
	"github.com/mauka-works/intake-engine/internal/store"
)

// maxChunkBytes caps one uploaded audio chunk. Recorders emit chunks every
// second or so; anything near this size is a misbehaving client.
const maxChunkBytes = 4 << 20

// Synthesizer turns a prompt into spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) ([]byte, error)
}

// MatchSource scores candidates against employer requirements.
type MatchSource interface {
	TopMatches(ctx context.Context, requirements map[string]string, candidates []match.Candidate) ([]match.Match, error)
}

// ProfileLister supplies archived jobseeker profiles for matching.
type ProfileLister interface {
	ListSeekerProfiles(ctx context.Context, limit int) ([]store.SeekerProfile, error)
}

// ResumeBuilder produces resume content from a completed answer set.
type ResumeBuilder interface {
	Build(ctx context.Context, answers []flow.Answer) (resume.Content, error)
}

// SessionHandler exposes the intake flow over HTTP. Matcher, Profiles and
// Resumes are optional; their endpoints return 501 when absent.
type SessionHandler struct {
	ctrl     *flow.Controller
	tts      Synthesizer
	matcher  MatchSource
	profiles ProfileLister
	resumes  ResumeBuilder
}

func NewSessionHandler(ctrl *flow.Controller, tts Synthesizer, matcher MatchSource, profiles ProfileLister, resumes ResumeBuilder) *SessionHandler {
	return &SessionHandler{
		ctrl:     ctrl,
		tts:      tts,
		matcher:  matcher,
		profiles: profiles,
		resumes:  resumes,
	}
}

// writeFlowError maps flow and pipeline errors onto HTTP statuses.
func writeFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrNoSession):
		WriteError(w, http.StatusNotFound, "no active session")
	case errors.Is(err, flow.ErrInvalidPhase):
		WriteErrorDetail(w, http.StatusConflict, "action not allowed in current phase", err.Error())
	case errors.Is(err, flow.ErrUnknownLanguage):
		WriteErrorDetail(w, http.StatusBadRequest, "unknown language", err.Error())
	case errors.Is(err, capture.ErrDeviceUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "capture device unavailable")
	case errors.Is(err, capture.ErrEmptyRecording), errors.Is(err, capture.ErrNotRecording), errors.Is(err, capture.ErrAlreadyRecording):
		WriteErrorDetail(w, http.StatusUnprocessableEntity, "recording failed", err.Error())
	case errors.Is(err, speech.ErrNoSpeech):
		WriteError(w, http.StatusUnprocessableEntity, "no speech detected")
	case errors.Is(err, speech.ErrUnavailable):
		WriteError(w, http.StatusBadGateway, "speech service unavailable")
	default:
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := flow.ParseRole(req.Role)
	if err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid role", err.Error())
		return
	}
	if err := h.ctrl.StartSession(role); err != nil {
		writeFlowError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, h.ctrl.View())
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *SessionHandler) SelectLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.ctrl.SelectLanguage(r.Context(), req.Language); err != nil {
		writeFlowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *SessionHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.StartRecording(); err != nil {
		writeFlowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

// PushChunk accepts one raw audio chunk as the request body.
func (h *SessionHandler) PushChunk(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(io.LimitReader(r.Body, maxChunkBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read chunk")
		return
	}
	if len(chunk) > maxChunkBytes {
		WriteError(w, http.StatusRequestEntityTooLarge, "chunk too large")
		return
	}
	if err := h.ctrl.PushChunk(chunk); err != nil {
		writeFlowError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *SessionHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.StopRecording(r.Context()); err != nil {
		writeFlowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *SessionHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.ctrl.SubmitTyped(r.Context(), req.Text); err != nil {
		writeFlowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Confirm(r.Context()); err != nil {
		writeFlowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *SessionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Reject(); err != nil {
		writeFlowError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Reset()
	WriteJSON(w, http.StatusOK, h.ctrl.View())
}

// Speak reads the current question aloud in the session language.
func (h *SessionHandler) Speak(w http.ResponseWriter, r *http.Request) {
	text, lang, ok := h.ctrl.CurrentPrompt()
	if !ok {
		WriteError(w, http.StatusNotFound, "no question to speak")
		return
	}
	audio, err := h.tts.Synthesize(r.Context(), text, lang)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("prompt synthesis failed")
		WriteError(w, http.StatusBadGateway, "speech synthesis unavailable")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

// Matches scores archived jobseekers against a completed employer session.
func (h *SessionHandler) Matches(w http.ResponseWriter, r *http.Request) {
	if h.matcher == nil || h.profiles == nil {
		WriteError(w, http.StatusNotImplemented, "matching is not configured")
		return
	}

	_, role, answers, ok := h.ctrl.Completed()
	if !ok {
		WriteError(w, http.StatusConflict, "session is not complete")
		return
	}
	if role != flow.RoleEmployer {
		WriteError(w, http.StatusConflict, "matches are only available for employer sessions")
		return
	}

	requirements := make(map[string]string, len(answers))
	for _, a := range answers {
		requirements[a.Key] = a.Value
	}

	profiles, err := h.profiles.ListSeekerProfiles(r.Context(), 50)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("listing seeker profiles failed")
		WriteError(w, http.StatusInternalServerError, "candidate lookup failed")
		return
	}
	candidates := make([]match.Candidate, len(profiles))
	for i, p := range profiles {
		candidates[i] = match.Candidate{ID: p.SessionID, Fields: p.Fields}
	}

	matches, err := h.matcher.TopMatches(r.Context(), requirements, candidates)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("candidate matching failed")
		WriteError(w, http.StatusBadGateway, "matching unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// Resume builds structured resume content from a completed jobseeker session.
func (h *SessionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if h.resumes == nil {
		WriteError(w, http.StatusNotImplemented, "resume generation is not configured")
		return
	}

	_, role, answers, ok := h.ctrl.Completed()
	if !ok {
		WriteError(w, http.StatusConflict, "session is not complete")
		return
	}
	if role != flow.RoleJobSeeker {
		WriteError(w, http.StatusConflict, "resumes are only available for jobseeker sessions")
		return
	}

	content, err := h.resumes.Build(r.Context(), answers)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("resume generation failed")
		WriteError(w, http.StatusBadGateway, "resume generation unavailable")
		return
	}
	WriteJSON(w, http.StatusOK, content)
}
