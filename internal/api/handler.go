// Package api exposes prescription analysis over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"rxguardian/internal/logger"
	"rxguardian/internal/ratelimit"
	"rxguardian/pkg/models"
	"rxguardian/pkg/services"
)

// Error messages returned to clients.
const (
	msgNoJSON         = "No JSON data received"
	msgNoPrescription = "No prescription text provided"
	msgNoAnalysis     = "No analysis data provided"
	msgNoFile         = "No prescription file provided"
)

const uploadField = "file"

// Deps are the collaborators of the HTTP handlers. Reader may be nil, in which
// case the upload route is not registered.
type Deps struct {
	Analyzer     services.PrescriptionAnalyzer
	Renderer     services.ReportRenderer
	Reader       services.PrescriptionReader
	Limiter      *ratelimit.Limiter
	MaxBodyBytes int64
}

type Handler struct {
	deps Deps
	log  zerolog.Logger
	now  func() time.Time
}

func NewHandler(deps Deps) *Handler {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		deps: deps,
		log:  logger.WithComponent("api"),
		now:  time.Now,
	}
}

// RegisterRoutes mounts the analysis endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/analyze", h.analyze)
	r.Post("/download", h.download)
	if h.deps.Reader != nil {
		r.Post("/analyze/upload", h.upload)
	}
}

type analyzeResponse struct {
	Analysis   []models.MedicationRecord `json:"analysis"`
	SourceText string                    `json:"source_text,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	RateLimit ratelimit.Stats `json:"rate_limit"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if h.deps.Limiter != nil {
		resp.RateLimit = h.deps.Limiter.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	log := h.log.With().Str("request_id", requestID(r)).Logger()

	body, ok := h.decodeObject(w, r)
	if !ok {
		log.Error().Msg(msgNoJSON)
		writeError(w, http.StatusBadRequest, msgNoJSON)
		return
	}

	text, _ := body["prescription"].(string)
	text = strings.TrimSpace(text)
	if text == "" {
		log.Error().Msg(msgNoPrescription)
		writeError(w, http.StatusBadRequest, msgNoPrescription)
		return
	}

	records := h.deps.Analyzer.Analyze(r.Context(), text)
	log.Info().Int("medications", len(records)).Msg("Analysis returned")
	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: records})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	log := h.log.With().Str("request_id", requestID(r)).Logger()

	body, ok := h.decodeObject(w, r)
	if !ok {
		writeError(w, http.StatusBadRequest, msgNoAnalysis)
		return
	}
	raw, ok := body["analysis"].([]any)
	if !ok || len(raw) == 0 {
		writeError(w, http.StatusBadRequest, msgNoAnalysis)
		return
	}

	records := make([]models.MedicationRecord, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			m = map[string]any{models.KeyMedicationName: item}
		}
		records = append(records, models.RecordFromMap(m))
	}

	var buf bytes.Buffer
	if err := h.deps.Renderer.Render(&buf, records); err != nil {
		log.Error().Err(err).Msg("Error generating PDF")
		writeError(w, http.StatusInternalServerError, "Error generating PDF: "+err.Error())
		return
	}

	filename := fmt.Sprintf("prescription_analysis_%s.pdf", h.now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	log.Info().Str("filename", filename).Int("medications", len(records)).Msg("Report downloaded")
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	log := h.log.With().Str("request_id", requestID(r)).Logger()

	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		log.Error().Err(err).Msg(msgNoFile)
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	text, err := h.deps.Reader.ReadText(r.Context(), file)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("Could not read prescription")
		writeError(w, http.StatusUnprocessableEntity, "Could not read prescription: "+err.Error())
		return
	}

	records := h.deps.Analyzer.Analyze(r.Context(), strings.TrimSpace(text))
	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: records, SourceText: text})
}

// decodeObject reads a non-empty JSON object from the request body.
func (h *Handler) decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		if !errors.Is(err, io.EOF) {
			h.log.Debug().Err(err).Msg("Invalid JSON body")
		}
		return nil, false
	}
	return body, len(body) > 0
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
