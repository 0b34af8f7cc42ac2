package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/nvr-ai/intelliroad/images"
	"github.com/nvr-ai/intelliroad/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Client-facing error messages of POST /detect.
const (
	msgNoFile       = "No file uploaded"
	msgEmptyName    = "Empty filename"
	msgEmptyContent = "Empty file content"
	msgUndecodable  = "Invalid image file - cannot decode with any decoder"
	msgDetection    = "Detection failed: "
)

// multipartMemory is how much of a form is kept in memory before spilling to disk.
const multipartMemory = 32 << 20

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	d := s.pipeline.Detector()
	respondJSON(w, map[string]interface{}{
		"status":  "ok",
		"engine":  d.Engine(),
		"classes": d.Classes(),
	}, http.StatusOK)
}

// handleDetect takes a multipart "file" field and answers with the annotated PNG.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		log.Debug().Err(err).Msg("multipart form rejected")
		respondError(w, msgNoFile, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		// Parts without a filename are parsed as plain values.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			respondError(w, msgEmptyName, http.StatusBadRequest)
			return
		}
		respondError(w, msgNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, msgEmptyName, http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		respondError(w, msgEmptyContent, http.StatusBadRequest)
		return
	}

	canvas, err := s.decoder.Decode(data)
	if err != nil {
		metrics.RecordDecodeFailure("http")
		log.Warn().Err(err).Str("filename", header.Filename).Int("bytes", len(data)).Msg("upload not decodable")
		respondError(w, msgUndecodable, http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.Process(r.Context(), canvas)
	if err != nil {
		canvas.Close()
		log.Error().Err(err).Str("filename", header.Filename).Msg("detection failed")
		respondError(w, msgDetection+errors.Cause(err).Error(), http.StatusInternalServerError)
		return
	}
	defer result.Close()

	body, err := images.Encode(result.Annotated, images.FormatPNG)
	if err != nil {
		respondError(w, msgDetection+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("filename", header.Filename).
		Int("detections", len(result.Detections)).
		Msg("✅ detection complete")

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
