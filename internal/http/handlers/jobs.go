package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"clippilot/internal/domain"
	"clippilot/internal/pkg/urldetector"
)

// maxJobBodyBytes caps the JSON body of a job submission
const maxJobBodyBytes = 16 << 10

type JobsHandler struct {
	logger   *slog.Logger
	queue    domain.QueueRepository
	platform domain.Platform
}

// CreateJobRequest is the body of POST /api/v1/caption-jobs
type CreateJobRequest struct {
	URL       string `json:"url"`
	ChannelID string `json:"channel_id,omitempty"`
}

// CreateJobResponse is returned once a job is queued
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func NewJobsHandler(logger *slog.Logger, queue domain.QueueRepository, platform domain.Platform) *JobsHandler {
	return &JobsHandler{
		logger:   logger,
		queue:    queue,
		platform: platform,
	}
}

// CreateJob queues a caption extraction for the worker
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if _, err := urldetector.NormalizeURL(req.URL, h.platform); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := h.queue.Enqueue(r.Context(), domain.JobTypeExtractCaption, domain.CaptionJobPayload{
		URL:       req.URL,
		ChannelID: strings.TrimSpace(req.ChannelID),
	})
	if err != nil {
		h.logger.Error("Failed to enqueue caption job", "error", err, "url", req.URL)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue caption job")
		return
	}

	writeJSONResponse(w, h.logger, http.StatusAccepted, CreateJobResponse{
		JobID:  jobID,
		Status: domain.JobStatusPending,
	})
}

// GetJob returns the current state of a caption job
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.queue.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error("Failed to retrieve caption job", "error", err, "job_id", jobID)
		writeError(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSONResponse(w, h.logger, http.StatusOK, job)
}
