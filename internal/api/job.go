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

// JobHandler exposes the job workflow. Every response carries a populated
// JobView rather than the bare model.
type JobHandler struct {
	jobs      *service.JobService
	presenter *present.Presenter
	logger    *zap.Logger
}

func NewJobHandler(jobs *service.JobService, presenter *present.Presenter, logger *zap.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, presenter: presenter, logger: logger}
}

func (h *JobHandler) respond(c *gin.Context, status int, j *models.Job) {
	view, err := h.presenter.Job(c.Request.Context(), j)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(status, view)
}

// Create handles POST /v1/jobs. Status, client and applications in the body
// are ignored.
func (h *JobHandler) Create(c *gin.Context) {
	var draft models.Job
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err.Error())
		return
	}

	j, err := h.jobs.Create(c.Request.Context(), middleware.GetActor(c), draft)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusCreated, j)
}

func optionalUUID(raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// List handles GET /v1/jobs?status=open&client=<id>&selectedGuard=<id>
func (h *JobHandler) List(c *gin.Context) {
	status, err := service.ParseStatus(c.Query("status"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	client, ok := optionalUUID(c.Query("client"))
	if !ok {
		badRequest(c, "invalid client")
		return
	}
	guard, ok := optionalUUID(c.Query("selectedGuard"))
	if !ok {
		badRequest(c, "invalid selectedGuard")
		return
	}

	jobs, err := h.jobs.List(c.Request.Context(), models.JobFilter{
		Status:        status,
		ClientID:      client,
		SelectedGuard: guard,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	views, err := h.presenter.Jobs(c.Request.Context(), jobs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Get handles GET /v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	j, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, j)
}

// Update handles PUT /v1/jobs/:id. The body is decoded into JobPatch, so a
// key outside the editable set rejects the request before anything changes.
func (h *JobHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch models.JobPatch
	if err := decodeStrict(c, &patch); err != nil {
		badRequest(c, "invalid updates")
		return
	}

	j, err := h.jobs.Update(c.Request.Context(), middleware.GetActor(c), id, patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, j)
}

// Delete handles DELETE /v1/jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "job deleted"})
}

// Apply handles POST /v1/jobs/:id/apply. Applying twice is a no-op.
func (h *JobHandler) Apply(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.jobs.Apply(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "application submitted"})
}

// Applications handles GET /v1/jobs/:id/applications
func (h *JobHandler) Applications(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ids, err := h.jobs.Applications(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	applicants, err := h.presenter.Applicants(c.Request.Context(), ids)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, applicants)
}

type hireRequest struct {
	GuardID uuid.UUID `json:"guardId" binding:"required"`
}

// Hire handles POST /v1/jobs/:id/hire/:guardId and POST /v1/jobs/:id/hire
// with {"guardId"} in the body.
func (h *JobHandler) Hire(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var guardID uuid.UUID
	if c.Param("guardId") != "" {
		if guardID, ok = paramID(c, "guardId"); !ok {
			return
		}
	} else {
		var req hireRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "guardId is required")
			return
		}
		guardID = req.GuardID
	}

	j, err := h.jobs.Hire(c.Request.Context(), middleware.GetActor(c), id, guardID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, j)
}

// Complete handles POST /v1/jobs/:id/complete
func (h *JobHandler) Complete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	j, err := h.jobs.Complete(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, j)
}

type rateRequest struct {
	Score   *float64 `json:"score" binding:"required"`
	Comment string   `json:"comment"`
}

// Rate handles POST /v1/jobs/:id/rate
func (h *JobHandler) Rate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "score is required")
		return
	}

	j, err := h.jobs.Rate(c.Request.Context(), middleware.GetActor(c), id, *req.Score, req.Comment)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.respond(c, http.StatusOK, j)
}
