package handler

import (
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/callvault-team/callvault/errors"
	"github.com/callvault-team/callvault/internal/adapter/dto/common"
	recordingDto "github.com/callvault-team/callvault/internal/adapter/dto/recording"
	usecaseErrors "github.com/callvault-team/callvault/internal/usecase/errors"
	"github.com/callvault-team/callvault/internal/usecase/ingest"
)

// Recording handles recording ingestion and retrieval endpoints
type Recording struct {
	ingestService ingest.Service
	logger        *zap.Logger
}

// NewRecording creates a new recording handler
func NewRecording(ingestService ingest.Service, logger *zap.Logger) *Recording {
	return &Recording{
		ingestService: ingestService,
		logger:        logger,
	}
}

// Upload handles POST /v1/recordings (multipart form upload)
func (h *Recording) Upload(c echo.Context) error {
	var req recordingDto.UploadRecordingRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid form data"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidUpload("file part is required"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidUpload("failed to open uploaded file"))
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidUpload("failed to read uploaded file"))
	}

	recording, err := h.ingestService.Ingest(c.Request().Context(), ingest.IngestInput{
		Filename: fileHeader.Filename,
		Content:  content,
		Duration: req.Duration,
		Agent:    req.Agent,
		CallType: req.CallType,
	})
	if err != nil {
		return HandleError(h.logger, c, h.mapIngestError(err))
	}

	return HandleSuccess(h.logger, c, http.StatusCreated, recordingDto.FromEntity(recording))
}

// Import handles POST /v1/recordings/import
func (h *Recording) Import(c echo.Context) error {
	var req recordingDto.ImportRecordingRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	recording, err := h.ingestService.ImportRemote(c.Request().Context(), ingest.ImportInput{
		RemoteKey: req.RemoteKey,
		Filename:  req.Filename,
		Filesize:  req.Filesize,
		Duration:  req.Duration,
		Agent:     req.Agent,
		CallType:  req.CallType,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return HandleError(h.logger, c, h.mapIngestError(err))
	}

	return HandleSuccess(h.logger, c, http.StatusCreated, recordingDto.FromEntity(recording))
}

// List handles GET /v1/recordings
func (h *Recording) List(c echo.Context) error {
	var req recordingDto.ListRecordingsRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid query parameters"))
	}
	req.Normalize()

	recordings, total, err := h.ingestService.ListRecordings(c.Request().Context(), buildFilters(&req))
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	resp := common.ListResponse{
		Data:       recordingDto.FromEntities(recordings),
		Pagination: common.NewPagination(req.Page, req.PageSize, total),
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// Get handles GET /v1/recordings/:id
func (h *Recording) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid recording id"))
	}

	recording, err := h.ingestService.GetRecording(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, h.mapIngestError(err))
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recordingDto.FromEntity(recording))
}

// Delete handles DELETE /v1/recordings/:id
func (h *Recording) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid recording id"))
	}

	if err := h.ingestService.DeleteRecording(c.Request().Context(), id); err != nil {
		return HandleError(h.logger, c, h.mapIngestError(err))
	}

	return HandleSuccess(h.logger, c, http.StatusOK, map[string]string{"id": id.String()})
}

// Download handles GET /v1/recordings/:id/download
func (h *Recording) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid recording id"))
	}

	url, err := h.ingestService.DownloadURL(c.Request().Context(), id)
	if err != nil {
		return HandleError(h.logger, c, h.mapIngestError(err))
	}

	return HandleSuccess(h.logger, c, http.StatusOK, recordingDto.DownloadResponse{URL: url})
}

// CheckDuplicate handles POST /v1/recordings/check-duplicate
func (h *Recording) CheckDuplicate(c echo.Context) error {
	var req recordingDto.CheckDuplicateRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("content_hash must be 64 lowercase hex characters"))
	}

	check, err := h.ingestService.CheckDuplicate(c.Request().Context(), req.ContentHash)
	if err != nil {
		return HandleError(h.logger, c, h.mapIngestError(err))
	}

	resp := recordingDto.DuplicateCheckResponse{Duplicate: check.Duplicate}
	if check.Existing != nil {
		resp.Existing = recordingDto.FromEntity(check.Existing)
	}
	return HandleSuccess(h.logger, c, http.StatusOK, resp)
}

// mapIngestError translates use case errors into API errors
func (h *Recording) mapIngestError(err error) error {
	var dup *ingest.DuplicateError
	if stdErrors.As(err, &dup) {
		return errors.ErrDuplicateContent(dup.Existing.ID.String(), dup.Existing.Filename)
	}

	switch {
	case stdErrors.Is(err, usecaseErrors.ErrRecordingNotFound):
		return errors.ErrNotFound("recording")
	case stdErrors.Is(err, usecaseErrors.ErrMissingFilename),
		stdErrors.Is(err, usecaseErrors.ErrEmptyUpload):
		return errors.ErrInvalidUpload(err.Error())
	case stdErrors.Is(err, usecaseErrors.ErrInvalidInput):
		return errors.ErrInvalidArgument(err.Error())
	case stdErrors.Is(err, usecaseErrors.ErrRemoteObjectMissing):
		return errors.AppError{
			Raw:      err,
			HTTPCode: http.StatusUnprocessableEntity,
			Code:     errors.ErrorCode_STORAGE_FAILED,
			Message:  "Remote object does not exist in storage",
		}
	case stdErrors.Is(err, usecaseErrors.ErrAudioMissing):
		return errors.ErrStorageFailed("download", err)
	default:
		return fmt.Errorf("recording request failed: %w", err)
	}
}
