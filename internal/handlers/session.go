package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/stopmotion-pipeline/internal/logging"
	"github.com/tendant/stopmotion-pipeline/pkg/pipeline"
	"github.com/tendant/stopmotion-pipeline/pkg/runner"
)

// HandleUpload handles POST /v1/images with multipart "files" parts
func (h *APIHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid upload: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.writeError(w, http.StatusBadRequest, "no files in field \"files\"")
		return
	}

	images := make([]pipeline.Image, 0, len(headers))
	for _, fh := range headers {
		img, err := readPart(fh)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		images = append(images, img)
	}

	added, err := h.runner.Upload(images)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.logger.Info("images uploaded", logging.Int("count", len(added)))

	views := make([]pipeline.Entry, 0, len(added))
	for _, e := range added {
		views = append(views, runner.EntryView(e))
	}
	h.writeJSON(w, http.StatusCreated, views)
}

// readPart loads one uploaded file. The declared part type wins; parts
// without one are sniffed.
func readPart(fh *multipart.FileHeader) (pipeline.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return pipeline.Image{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return pipeline.Image{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return pipeline.Image{Filename: fh.Filename, MimeType: mimeType, Data: data}, nil
}

// HandleRemove handles DELETE /v1/images/{id}
func (h *APIHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.runner.Remove(chi.URLParam(r, "id")); err != nil {
		h.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReorder handles PUT /v1/order
func (h *APIHandler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if err := h.runner.Reorder(req.Identities); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.runner.Snapshot())
}

// HandleNext handles POST /v1/steps/next
func (h *APIHandler) HandleNext(w http.ResponseWriter, r *http.Request) {
	step, err := h.runner.Next()
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pipeline.StepResponse{Step: step.String()})
}

// HandleBack handles POST /v1/steps/back
func (h *APIHandler) HandleBack(w http.ResponseWriter, r *http.Request) {
	step, err := h.runner.Back()
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pipeline.StepResponse{Step: step.String()})
}

// HandleFrameRate handles PUT /v1/frame-rate. Invalid text is accepted and
// reported through the valid flag.
func (h *APIHandler) HandleFrameRate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.FrameRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	state, err := h.runner.SetFrameRateText(req.Text)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pipeline.FrameRate{Text: state.Text, Valid: state.Valid, Confirmed: state.Confirmed})
}

// HandlePreviewToggle handles POST /v1/preview/toggle
func (h *APIHandler) HandlePreviewToggle(w http.ResponseWriter, r *http.Request) {
	if _, err := h.runner.TogglePreview(); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.runner.Snapshot().Preview)
}
