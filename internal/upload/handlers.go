package upload

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"photoflow/internal/errvalues"
)

type Handler struct {
	service    *Service
	reconciler *Reconciler
}

func NewHandler(service *Service, reconciler *Reconciler) *Handler {
	return &Handler{
		service:    service,
		reconciler: reconciler,
	}
}

// Register wires the upload routes onto the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/uploads/init", h.HandleInit)
	mux.HandleFunc("POST /api/v1/uploads/complete", h.HandleComplete)
	mux.HandleFunc("POST /api/v1/uploads/status/batch", h.HandleBatchStatus)
	mux.HandleFunc("GET /api/v1/uploads/{uploadId}", h.HandleStatus)
	mux.HandleFunc("DELETE /api/v1/uploads/{uploadId}", h.HandleAbort)
}

// HandleInit handles POST /api/v1/uploads/init
func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	var req InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", "")
		return
	}

	if req.Filename == "" {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "filename is required", "")
		return
	}
	if req.FileSizeBytes <= 0 {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "fileSizeBytes must be greater than 0", "")
		return
	}
	if req.ContentType == "" {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "contentType is required", "")
		return
	}

	resp, err := h.service.Init(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, errvalues.ErrValidation):
			h.writeError(w, http.StatusBadRequest, validationCode(err), err.Error(), "")
		case errors.Is(err, errvalues.ErrPresign):
			h.writeError(w, http.StatusInternalServerError, ErrCodePresignFailed, err.Error(), "Retry the init request")
		default:
			h.writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), "")
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, resp)
}

// HandleComplete handles POST /api/v1/uploads/complete
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", "")
		return
	}

	if req.UploadID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "uploadId is required", "")
		return
	}
	if req.ObjectKey == "" {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "objectKey is required", "")
		return
	}

	resp, err := h.reconciler.Complete(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, errvalues.ErrValidation):
			h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), "")
		case errors.Is(err, errvalues.ErrNotFound):
			h.writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), "")
		case errors.Is(err, errvalues.ErrFinalizeCommit):
			h.writeError(w, http.StatusInternalServerError, ErrCodeCommitFailed, err.Error(), "Retry complete with the same part tags")
		default:
			h.writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), "")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleAbort handles DELETE /api/v1/uploads/{uploadId}
func (h *Handler) HandleAbort(w http.ResponseWriter, r *http.Request) {
	uploadID, err := uuid.Parse(r.PathValue("uploadId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid uploadId", "")
		return
	}

	if err := h.reconciler.Abort(r.Context(), uploadID); err != nil {
		if errors.Is(err, errvalues.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), "")
			return
		}
		h.writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /api/v1/uploads/{uploadId}
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	uploadID, err := uuid.Parse(r.PathValue("uploadId"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid uploadId", "")
		return
	}

	resp, err := h.service.Status(r.Context(), uploadID)
	if err != nil {
		if errors.Is(err, errvalues.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), "")
			return
		}
		h.writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), "")
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleBatchStatus handles POST /api/v1/uploads/status/batch.
// The body is a bare JSON array of ids; a {"uploadIds": [...]} wrapper is
// accepted too.
func (h *Handler) HandleBatchStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", "")
		return
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(body, &ids); err != nil {
		var req BatchStatusRequest
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", "")
			return
		}
		ids = req.UploadIDs
	}
	if len(ids) == 0 {
		h.writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "uploadIds is required", "")
		return
	}

	statuses := h.service.BatchStatus(r.Context(), ids)
	h.writeJSON(w, http.StatusOK, statuses)
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a standardized error response
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, code, message, hint string) {
	errorResp := ErrorResponse{
		Code:    code,
		Message: message,
		Hint:    hint,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorResp)
}

func validationCode(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "content type not allowed"):
		return ErrCodeMimeNotAllowed
	case strings.Contains(msg, "exceeds maximum"):
		return ErrCodeSizeTooLarge
	default:
		return ErrCodeBadRequest
	}
}
