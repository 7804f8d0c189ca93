package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/loader"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
	"github.com/andresuchdata/stockopt/backend-go/internal/repository"
	"github.com/andresuchdata/stockopt/backend-go/internal/service"
)

type ScenarioHandler struct {
	service *service.ScenarioService
}

func NewScenarioHandler(service *service.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{service: service}
}

type sourceRequest struct {
	Prefix          string `json:"prefix" binding:"required"`
	Forecast        string `json:"forecast"`
	Historical      string `json:"historical"`
	StoreSupply     string `json:"store_supply"`
	TransportMatrix string `json:"transport_matrix"`
}

type optimizeRequest struct {
	Name   string                `json:"name" binding:"required"`
	Input  *domain.ScenarioInput `json:"input"`
	Source *sourceRequest        `json:"source"`
}

// Optimize accepts either an inline scenario input or an object storage
// prefix holding the input CSVs.
func (h *ScenarioHandler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var in domain.ScenarioInput
	switch {
	case req.Input != nil:
		in = *req.Input
		in.Name = req.Name
	case req.Source != nil:
		var err error
		in, err = h.service.LoadFromStorage(c.Request.Context(), req.Name, req.Source.Prefix, loader.Files{
			Forecast:        req.Source.Forecast,
			Historical:      req.Source.Historical,
			StoreSupply:     req.Source.StoreSupply,
			TransportMatrix: req.Source.TransportMatrix,
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either input or source is required"})
		return
	}

	h.optimize(c, in)
}

// formFields maps multipart field names to the input file each one carries.
var formFields = map[string]string{
	"forecast":         loader.ForecastFile,
	"historical":       loader.HistoricalFile,
	"store_supply":     loader.StoreSupplyFile,
	"transport_matrix": loader.TransportMatrixFile,
}

// formSource serves uploaded multipart files as loader inputs.
type formSource map[string]*multipart.FileHeader

func (f formSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	fh, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, loader.ErrNotFound)
	}
	return fh.Open()
}

// Upload runs a scenario from CSV files posted as multipart form data.
func (h *ScenarioHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	src := make(formSource)
	for field, name := range formFields {
		if files := form.File[field]; len(files) > 0 {
			src[name] = files[0]
		}
	}
	if len(src) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = "upload"
	}

	in, err := loader.Load(c.Request.Context(), src, name, loader.Files{})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.optimize(c, in)
}

func (h *ScenarioHandler) optimize(c *gin.Context, in domain.ScenarioInput) {
	if len(in.Forecast) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "forecast is empty"})
		return
	}

	out, err := h.service.Optimize(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if out.Cached {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"run":    out.Run,
		"cached": out.Cached,
	})
}

func (h *ScenarioHandler) ListRuns(c *gin.Context) {
	filter := domain.ScenarioRunFilter{
		Name: strings.TrimSpace(c.Query("name")),
	}

	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseRunStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + raw})
			return
		}
		filter.Status = status
	}

	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	runs, total, err := h.service.ListRuns(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if runs == nil {
		runs = make([]domain.ScenarioRun, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":   runs,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *ScenarioHandler) GetRun(c *gin.Context) {
	run, ok := h.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *ScenarioHandler) GetTransfers(c *gin.Context) {
	if rep, ok := h.loadReport(c); ok {
		c.JSON(http.StatusOK, rep.Transfers)
	}
}

func (h *ScenarioHandler) GetManufacturing(c *gin.Context) {
	if rep, ok := h.loadReport(c); ok {
		c.JSON(http.StatusOK, rep.Manufacturing)
	}
}

func (h *ScenarioHandler) GetSummary(c *gin.Context) {
	if rep, ok := h.loadReport(c); ok {
		c.JSON(http.StatusOK, rep.Summary)
	}
}

func (h *ScenarioHandler) loadRun(c *gin.Context) (*domain.ScenarioRun, bool) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return run, true
}

func (h *ScenarioHandler) loadReport(c *gin.Context) (*domain.ScenarioReport, bool) {
	run, ok := h.loadRun(c)
	if !ok {
		return nil, false
	}
	if run.Report == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "run has no report",
			"status": run.Status,
		})
		return nil, false
	}
	return run.Report, true
}

func (h *ScenarioHandler) respondError(c *gin.Context, err error) {
	var solveErr *optimizer.SolveError
	switch {
	case errors.As(err, &solveErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"status": optimizer.RunStatus(solveErr.Status),
		})
	case errors.Is(err, optimizer.ErrMissingInventory):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, loader.ErrNotFound),
		errors.Is(err, service.ErrStorageDisabled),
		errors.Is(err, loader.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("scenario request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
