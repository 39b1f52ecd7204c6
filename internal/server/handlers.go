package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/proconverter/proconverter-lemons/internal/domain"
	apperrors "github.com/proconverter/proconverter-lemons/internal/errors"
)

// handleConvert processes one conversion unit: one archive upload within a
// caller-driven multi-file session.
func (s *Server) handleConvert(c echo.Context) error {
	req, file, err := parseConvertForm(c)
	if err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return apperrors.InternalError("processing failed", err)
	}
	defer src.Close()
	req.File = src

	result, err := s.converter.ProcessUnit(c.Request().Context(), req)
	if err != nil {
		return mapConvertError(err, req.SessionID)
	}

	if !result.Completed {
		return c.JSON(http.StatusAccepted, map[string]any{
			"status":       "accepted",
			"session_id":   req.SessionID,
			"images_added": result.ImagesAdded,
			"images_total": result.ImagesTotal,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "complete",
		"session_id":     req.SessionID,
		"images_total":   result.ImagesTotal,
		"download_url":   fmt.Sprintf("/api/download/%s", result.DownloadToken),
		"remaining_uses": result.RemainingUses,
	})
}

// handleDownload streams a packaged archive exactly once. The archive is
// purged server-side whether or not the transfer completes.
func (s *Server) handleDownload(c echo.Context) error {
	token := c.Param("token")

	rc, name, err := s.converter.OpenDownload(token)
	if err != nil {
		return apperrors.NotFoundError("download not found or already retrieved").
			WithField("token", token)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, name))
	return c.Stream(http.StatusOK, "application/zip", rc)
}

func parseConvertForm(c echo.Context) (domain.ConvertRequest, *multipart.FileHeader, error) {
	var req domain.ConvertRequest

	req.SessionID = strings.TrimSpace(c.FormValue("session_id"))
	if req.SessionID == "" {
		return req, nil, apperrors.ValidationError("session_id is required")
	}

	var err error
	if req.IsFirstFile, err = parseBoolField(c, "is_first_file", false); err != nil {
		return req, nil, err
	}
	if req.IsLastFile, err = parseBoolField(c, "is_last_file", false); err != nil {
		return req, nil, err
	}
	if req.MakeTransparent, err = parseBoolField(c, "make_transparent", true); err != nil {
		return req, nil, err
	}

	if raw := c.FormValue("file_index"); raw != "" {
		req.FileIndex, err = strconv.Atoi(raw)
		if err != nil || req.FileIndex < 0 {
			return req, nil, apperrors.ValidationError("file_index must be a non-negative integer").
				WithField("file_index", raw)
		}
	}

	req.LicenseKey = strings.TrimSpace(c.FormValue("license_key"))
	if req.IsFirstFile && req.LicenseKey == "" {
		return req, nil, apperrors.ValidationError("license_key is required on the first file")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return req, nil, apperrors.ValidationError("file is required")
	}

	req.Filename = fh.Filename
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".brushset" && ext != ".zip" {
		return req, nil, apperrors.ValidationError("file must be a .brushset archive").
			WithField("filename", fh.Filename)
	}

	return req, fh, nil
}

func parseBoolField(c echo.Context, field string, defaultValue bool) (bool, error) {
	raw := c.FormValue(field)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.ValidationError(fmt.Sprintf("%s must be a boolean", field)).
			WithField(field, raw)
	}
	return value, nil
}

// mapConvertError translates pipeline errors into the client-facing taxonomy.
func mapConvertError(err error, sessionID string) error {
	switch {
	case errors.Is(err, domain.ErrCorruptArchive),
		errors.Is(err, domain.ErrTooManyEntries),
		errors.Is(err, domain.ErrNoQualifyingImages):
		return apperrors.ValidationError(userMessage(err)).WithField("session_id", sessionID)

	case errors.Is(err, domain.ErrSessionNotFound):
		return apperrors.ValidationError("unknown session; restart with a new session_id").
			WithField("session_id", sessionID)

	case errors.Is(err, domain.ErrSessionAlreadyExists):
		return apperrors.ValidationError("session already started; first file was already submitted").
			WithField("session_id", sessionID)

	case errors.Is(err, domain.ErrLicenseNotFound),
		errors.Is(err, domain.ErrLicenseInactive):
		return apperrors.ForbiddenError("license key is not valid for conversion").
			WithField("session_id", sessionID)

	case errors.Is(err, domain.ErrLicenseExhausted):
		return apperrors.ExhaustedError("license key has no remaining uses").
			WithField("session_id", sessionID)

	case errors.Is(err, domain.ErrLicenseUnavailable):
		return apperrors.ExternalError("license validation could not be completed", err).
			WithField("session_id", sessionID)

	default:
		return apperrors.InternalError("processing failed", err).
			WithField("session_id", sessionID)
	}
}

// userMessage keeps the original descriptive wording for user input errors.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrCorruptArchive):
		return domain.ErrCorruptArchive.Error()
	case errors.Is(err, domain.ErrTooManyEntries):
		return domain.ErrTooManyEntries.Error()
	default:
		return domain.ErrNoQualifyingImages.Error()
	}
}
