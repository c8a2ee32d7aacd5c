package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/internal/storage"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
	"github.com/tendant/stopmotion-pipeline/pkg/runner"
)

// HandleLoadEncoder handles POST /v1/encoder/load
func (h *APIHandler) HandleLoadEncoder(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.LoadEncoder(r.Context()); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"encoder_ready": true})
}

// HandleProcessAsync handles POST /v1/process - starts an encode of the
// current sequence and returns immediately
func (h *APIHandler) HandleProcessAsync(w http.ResponseWriter, r *http.Request) {
	// An empty body means "encode".
	var req pipeline.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}
	if req.Job != "" && req.Job != pipeline.JobEncode {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported job %q", req.Job))
		return
	}

	runID, err := h.runner.Encode(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.logger.Info("encode started", logging.String(logging.FieldRunID, runID))
	h.writeJSON(w, http.StatusAccepted, pipeline.ProcessResponse{RunID: runID})
}

// HandleStatus handles GET /v1/runs/{runID} - returns workflow status
func (h *APIHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.runner.RunStatus(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, runner.RunView(status))
}

// HandleArtifact handles GET /v1/artifact - downloads the latest output
func (h *APIHandler) HandleArtifact(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.runner.Artifact()
	if !ok {
		h.writeError(w, http.StatusNotFound, "no artifact available")
		return
	}
	serveBlob(w, blob, true)
}

// HandleBlob handles GET /v1/blobs/{handle} - serves a preview or artifact
func (h *APIHandler) HandleBlob(w http.ResponseWriter, r *http.Request) {
	blob, ok := h.runner.Blob(chi.URLParam(r, "handle"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "handle not found or revoked")
		return
	}
	serveBlob(w, blob, r.URL.Query().Get("download") != "")
}

func serveBlob(w http.ResponseWriter, blob storage.Blob, attachment bool) {
	w.Header().Set("Content-Type", blob.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", blob.Name))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}
