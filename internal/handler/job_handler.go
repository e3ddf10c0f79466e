package handler

import (
	"errors"
	"net/http"

	"github.com/buzznfinds/internal/service"
	"github.com/gin-gonic/gin"
)

// GetJob 返回生成任务的状态
func (a *API) GetJob(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "ID should be a number")
		return
	}

	job, err := a.jobs.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			respondError(c, http.StatusNotFound, "Job not found")
			return
		}
		respondInternal(c, "get job", err)
		return
	}
	c.JSON(http.StatusOK, job)
}
