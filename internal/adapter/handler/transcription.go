package handler

import (
	stdErrors "errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/callvault-team/callvault/errors"
	recordingDto "github.com/callvault-team/callvault/internal/adapter/dto/recording"
	usecaseErrors "github.com/callvault-team/callvault/internal/usecase/errors"
	"github.com/callvault-team/callvault/internal/usecase/transcription"
)

// Transcription handles transcription request and retrieval endpoints
type Transcription struct {
	service transcription.Service
	logger  *zap.Logger
}

// NewTranscription creates a new transcription handler
func NewTranscription(service transcription.Service, logger *zap.Logger) *Transcription {
	return &Transcription{
		service: service,
		logger:  logger,
	}
}

// Request handles POST /v1/recordings/:id/transcribe. The transcription runs
// asynchronously; the response carries the PENDING transcription.
func (h *Transcription) Request(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid recording id"))
	}

	var req recordingDto.TranscribeRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	diarize := true
	if req.Diarize != nil {
		diarize = *req.Diarize
	}

	result, err := h.service.RequestTranscription(c.Request().Context(), id, transcription.RequestOptions{
		Language: req.Language,
		ModelID:  req.ModelID,
		Diarize:  diarize,
	})
	if err != nil {
		return HandleError(h.logger, c, h.mapError(id, err))
	}

	return HandleSuccess(h.logger, c, http.StatusAccepted, recordingDto.TranscriptionFromEntity(result))
}

// Get handles GET /v1/recordings/:id/transcription
func (h *Transcription) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid recording id"))
	}

	result, err := h.service.GetTranscription(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, h.mapError(id, err))
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recordingDto.TranscriptionFromEntity(result))
}

// mapError translates use case errors into API errors
func (h *Transcription) mapError(recordingID uuid.UUID, err error) error {
	switch {
	case stdErrors.Is(err, usecaseErrors.ErrRecordingNotFound):
		return errors.ErrRecordingNotFound(recordingID.String())
	case stdErrors.Is(err, usecaseErrors.ErrTranscriptionNotFound):
		return errors.ErrTranscriptionNotFound(recordingID.String())
	case stdErrors.Is(err, usecaseErrors.ErrTranscriptionInProgress):
		return errors.ErrTranscriptionInProgress(recordingID.String())
	default:
		return fmt.Errorf("transcription request failed: %w", err)
	}
}
