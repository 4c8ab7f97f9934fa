package handler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/docextract/internal/api/response"
	"github.com/kiranshivaraju/docextract/internal/jobs"
	"github.com/kiranshivaraju/docextract/pkg/models"
)

const (
	// MultipartOverhead is the body allowance on top of the file limit for
	// boundaries and part headers.
	MultipartOverhead = 64 << 10
	maxFormMemory     = 32 << 20
	fileField         = "file"
)

// Submitter starts processing of an uploaded document.
type Submitter interface {
	Submit(filename string, document []byte) (models.Job, error)
}

// JobReader looks up the current state of a job.
type JobReader interface {
	Get(id string) (models.Job, error)
}

// NewSubmitHandler returns an http.HandlerFunc for POST /process.
// It responds as soon as the job is registered; analysis continues in the background.
func NewSubmitHandler(svc Submitter, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+MultipartOverhead)

		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			writeFormError(w, err, maxUploadBytes)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(fileField)
		if err != nil {
			writeFormError(w, err, maxUploadBytes)
			return
		}
		defer file.Close()

		if header.Size > maxUploadBytes {
			response.Message(w, http.StatusRequestEntityTooLarge, uploadLimitMessage(maxUploadBytes))
			return
		}

		document, err := io.ReadAll(file)
		if err != nil {
			slog.Error("reading upload", "error", err, "filename", header.Filename)
			response.Message(w, http.StatusInternalServerError, "Error processing document")
			return
		}

		job, err := svc.Submit(header.Filename, document)
		if err != nil {
			slog.Error("submitting document", "error", err, "filename", header.Filename)
			response.Message(w, http.StatusInternalServerError, "Error processing document")
			return
		}

		response.JSON(w, http.StatusAccepted, submitResponse{
			JobID:   job.ID,
			Message: "Processing started",
		})
	}
}

// NewStatusHandler returns an http.HandlerFunc for GET /process?jobId=<id>.
// It only reads job state.
func NewStatusHandler(reader JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("jobId")
		if id == "" {
			response.Message(w, http.StatusBadRequest, "Job ID is required")
			return
		}

		job, err := reader.Get(id)
		if err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				response.Message(w, http.StatusNotFound, "Job not found")
				return
			}
			slog.Error("reading job", "error", err, "job_id", id)
			response.Message(w, http.StatusInternalServerError, "Error retrieving job status")
			return
		}

		switch job.Status {
		case models.JobStatusProcessing:
			response.JSON(w, http.StatusAccepted, statusResponse{Status: string(job.Status)})
		case models.JobStatusFailed:
			response.JSON(w, http.StatusInternalServerError, statusResponse{
				Status: string(job.Status),
				Error:  job.Error,
			})
		case models.JobStatusCompleted:
			if job.Result == nil {
				response.Message(w, http.StatusInternalServerError, "Error retrieving job status")
				return
			}
			response.Attachment(w, job.Result.Filename, "application/json", job.Result.Payload)
		default:
			response.Message(w, http.StatusInternalServerError, "Error retrieving job status")
		}
	}
}

// formErrorStatus maps a multipart parsing error to a response status.
// Missing or malformed bodies are the client's fault; anything else, such as
// a failure spooling the upload to a temp file, is a server error.
func formErrorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	var pathErr *fs.PathError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, multipart.ErrMessageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &pathErr):
		return http.StatusInternalServerError
	case errors.Is(err, http.ErrNotMultipart),
		errors.Is(err, http.ErrMissingBoundary),
		errors.Is(err, http.ErrMissingFile),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		strings.HasPrefix(err.Error(), "multipart: "):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeFormError(w http.ResponseWriter, err error, maxUploadBytes int64) {
	switch status := formErrorStatus(err); status {
	case http.StatusRequestEntityTooLarge:
		response.Message(w, status, uploadLimitMessage(maxUploadBytes))
	case http.StatusBadRequest:
		response.Message(w, status, "No file uploaded")
	default:
		slog.Error("parsing upload", "error", err)
		response.Message(w, http.StatusInternalServerError, "Error processing document")
	}
}

func uploadLimitMessage(limit int64) string {
	return fmt.Sprintf("File exceeds the %d MB upload limit", limit>>20)
}

type submitResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
