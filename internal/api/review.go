package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/middleware"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/present"
	"github.com/lalith-99/guardpost/internal/service"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	reviews   *service.ReviewService
	presenter *present.Presenter
	logger    *zap.Logger
}

func NewReviewHandler(reviews *service.ReviewService, presenter *present.Presenter, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, presenter: presenter, logger: logger}
}

// reviewScore is the 1..5 score of a review body. "score" is the documented
// key; "rating" is still read for older clients.
type reviewScore struct {
	Score  *int `json:"score"`
	Rating *int `json:"rating"`
}

func (s reviewScore) value() int {
	switch {
	case s.Score != nil:
		return *s.Score
	case s.Rating != nil:
		return *s.Rating
	}
	return 0
}

type createReviewRequest struct {
	JobID uuid.UUID `json:"jobId" binding:"required"`
	reviewScore
	Comment string `json:"comment"`
}

type updateReviewRequest struct {
	reviewScore
	Comment string `json:"comment"`
}

func (h *ReviewHandler) respond(c *gin.Context, status int, r *models.Review) {
	view, err := h.presenter.Review(c.Request.Context(), r)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(status, view)
}

func (h *ReviewHandler) respondSummary(c *gin.Context, summary *service.ReviewSummary) {
	view, err := h.presenter.ReviewSummary(c.Request.Context(), summary)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Create handles POST /v1/reviews. The reviewed user is the job's client.
func (h *ReviewHandler) Create(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "jobId is required")
		return
	}

	r, err := h.reviews.Create(c.Request.Context(), middleware.GetActor(c), req.JobID, req.value(), req.Comment)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusCreated, r)
}

// Update handles PUT /v1/reviews/:reviewId
func (h *ReviewHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "reviewId")
	if !ok {
		return
	}
	var req updateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	r, err := h.reviews.Update(c.Request.Context(), middleware.GetActor(c), id, req.value(), req.Comment)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, r)
}

// Delete handles DELETE /v1/reviews/:reviewId
func (h *ReviewHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "reviewId")
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
}

// ForUser handles GET /v1/reviews/user/:userId
func (h *ReviewHandler) ForUser(c *gin.Context) {
	id, ok := paramID(c, "userId")
	if !ok {
		return
	}
	summary, err := h.reviews.ForUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondSummary(c, summary)
}

// ForJob handles GET /v1/reviews/job/:jobId
func (h *ReviewHandler) ForJob(c *gin.Context) {
	id, ok := paramID(c, "jobId")
	if !ok {
		return
	}
	summary, err := h.reviews.ForJob(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respondSummary(c, summary)
}
