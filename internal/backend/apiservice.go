package backend

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/imagevault/internal/core"
	"github.com/jo-hoe/imagevault/internal/transform"
)

// APIService exposes the vault operations over HTTP. It owns no
// business rules: requests are decoded, handed to the orchestrator and
// the result or the mapped error status is written back.
type APIService struct {
	vault *core.VaultService
}

func NewAPIService(vault *core.VaultService) *APIService {
	return &APIService{
		vault: vault,
	}
}

type editRequest struct {
	Name   string         `json:"name" validate:"required"`
	Params map[string]any `json:"params"`
}

type detectRequest struct {
	Threshold float64 `json:"threshold"`
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Probe route for liveness checks
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group("/api")
	api.POST("/images", s.uploadImage)
	api.GET("/images", s.listImages)
	api.GET("/images/:id", s.getImage)
	api.GET("/images/:id/content", s.getImageContent)
	api.POST("/images/:id/edit", s.editImage)
	api.DELETE("/images/:id", s.deleteImage)
	api.POST("/images/:id/detect", s.detectObjects)
}

func (s *APIService) uploadImage(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request must contain a 'file' form field")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not open uploaded file")
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}

	record, err := s.vault.Upload(
		c.Request().Context(),
		data,
		fileHeader.Filename,
		fileHeader.Header.Get(echo.HeaderContentType),
	)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, record)
}

func (s *APIService) listImages(c echo.Context) error {
	records, err := s.vault.List(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, records)
}

func (s *APIService) getImage(c echo.Context) error {
	record, err := s.vault.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, record)
}

func (s *APIService) getImageContent(c echo.Context) error {
	data, record, err := s.vault.GetContent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.Blob(http.StatusOK, record.MIME, data)
}

func (s *APIService) editImage(c echo.Context) error {
	request := new(editRequest)
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON transform spec")
	}
	if err := c.Validate(request); err != nil {
		return err
	}

	record, err := s.vault.Edit(c.Request().Context(), c.Param("id"), transform.Spec{
		Name:   request.Name,
		Params: request.Params,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, record)
}

func (s *APIService) deleteImage(c echo.Context) error {
	if err := s.vault.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIService) detectObjects(c echo.Context) error {
	request := new(detectRequest)
	request.Threshold = 0.5
	if c.Request().ContentLength > 0 {
		if err := c.Bind(request); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON detection request")
		}
	}
	if raw := c.QueryParam("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "threshold must be a number")
		}
		request.Threshold = threshold
	}

	detections, err := s.vault.Detect(c.Request().Context(), c.Param("id"), request.Threshold)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"detections": detections,
	})
}

// mapError translates the orchestrator's error taxonomy into HTTP
// statuses. Internal failures keep their detail in the logs; clients
// only see a generic message so storage paths never leak.
func mapError(err error) error {
	var validationErr *core.ValidationError
	var conflictErr *core.ConflictError
	var notFoundErr *core.NotFoundError
	var transformErr *core.TransformError

	switch {
	case errors.As(err, &validationErr):
		return echo.NewHTTPError(http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &conflictErr):
		return echo.NewHTTPError(http.StatusConflict, conflictErr.Error())
	case errors.As(err, &notFoundErr):
		return echo.NewHTTPError(http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &transformErr):
		slog.Error("transform failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "image transformation failed")
	case errors.Is(err, core.ErrDetectionDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, core.ErrDetectionDisabled.Error())
	default:
		slog.Error("internal failure", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
