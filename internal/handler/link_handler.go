package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/SergeiKhy/tinylink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	service  service.LinkService
	resolver service.Resolver
	baseURL  string
	logger   *zap.Logger
}

func NewLinkHandler(service service.LinkService, resolver service.Resolver, baseURL string, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		service:  service,
		resolver: resolver,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

type CreateLinkRequest struct {
	URL        string `json:"url" binding:"required"`
	CustomCode string `json:"custom_code,omitempty"`
}

type LinkResponse struct {
	Code        string     `json:"code"`
	ShortURL    string     `json:"short_url"`
	TargetURL   string     `json:"target_url"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	LastClicked *time.Time `json:"last_clicked"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *LinkHandler) toResponse(link *models.Link) LinkResponse {
	return LinkResponse{
		Code:        link.Code,
		ShortURL:    h.baseURL + "/" + link.Code,
		TargetURL:   link.TargetURL,
		Clicks:      link.Clicks,
		CreatedAt:   link.CreatedAt,
		LastClicked: link.LastClicked,
	}
}

// CreateLink godoc
// @Summary Create a short link
// @Description Create a new short code for a target URL
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link creation request"
// @Success 201 {object} LinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/links [post]
func (h *LinkHandler) CreateLink(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	// Реестр доверяет вызывающему слою проверку схемы URL
	targetURL := strings.TrimSpace(req.URL)
	if err := service.ValidateTargetURL(targetURL); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "Invalid URL. Must start with http:// or https://",
		})
		return
	}

	input := &models.CreateLinkInput{TargetURL: targetURL}
	if code := strings.TrimSpace(req.CustomCode); code != "" {
		input.CustomCode = &code
	}

	link, err := h.service.CreateLink(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCodeFormat):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_code",
				Message: "Code must be 6-8 alphanumeric characters",
			})
		case errors.Is(err, service.ErrCodeAlreadyExists):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "code_exists",
				Message: "Code already exists",
			})
		default:
			h.logger.Error("Failed to create link", zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to create link",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(link))
}

// ListLinks godoc
// @Summary List all links
// @Description All links with their click statistics, newest first
// @Tags links
// @Produce json
// @Success 200 {array} LinkResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/links [get]
func (h *LinkHandler) ListLinks(c *gin.Context) {
	links, err := h.service.ListLinks(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list links", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list links",
		})
		return
	}

	response := make([]LinkResponse, 0, len(links))
	for i := range links {
		response = append(response, h.toResponse(&links[i]))
	}

	c.JSON(http.StatusOK, response)
}

// GetLink godoc
// @Summary Get link stats
// @Description Target URL, click count and timestamps for a short code
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/{code} [get]
func (h *LinkHandler) GetLink(c *gin.Context) {
	code := c.Param("code")

	link, err := h.service.GetLink(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No such code exists",
			})
			return
		}
		h.logger.Error("Failed to get link", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get link",
		})
		return
	}

	c.JSON(http.StatusOK, h.toResponse(link))
}

// DeleteLink godoc
// @Summary Delete a short link
// @Description Delete a short code; deleting a missing code succeeds
// @Tags links
// @Produce json
// @Param code path string true "Short code"
// @Success 200 {object} map[string]string
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/links/{code} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context) {
	code := c.Param("code")

	if err := h.service.DeleteLink(c.Request.Context(), code); err != nil {
		h.logger.Error("Failed to delete link", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to delete link",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted"})
}

// Redirect godoc
// @Summary Redirect to target URL
// @Description Records a click and redirects to the target URL
// @Tags links
// @Param code path string true "Short code"
// @Success 307 {object} nil
// @Failure 404 {object} ErrorResponse
// @Router /{code} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	h.resolve(c, c.Param("code"))
}

// RedirectByQuery обслуживает старый формат ссылок /?code=abc123
func (h *LinkHandler) RedirectByQuery(c *gin.Context) {
	h.resolve(c, c.Query("code"))
}

func (h *LinkHandler) resolve(c *gin.Context, code string) {
	if code == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	res, err := h.resolver.Resolve(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("Failed to resolve code", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to resolve link",
		})
		return
	}

	if res.Outcome == models.OutcomeNotFound {
		h.logger.Info("Link not found", zap.String("code", code))
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Link not found",
		})
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, res.TargetURL)
}
