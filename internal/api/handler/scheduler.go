package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/cache"
	"github.com/itsJ0ker/midnight/internal/scheduler"
)

// SchedulerHandler exposes the background jobs and the cache statistics to god admins.
type SchedulerHandler struct {
	scheduler *scheduler.Scheduler
	recent    *cache.RecentCache
}

func NewScheduler(s *scheduler.Scheduler, recent *cache.RecentCache) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: s,
		recent:    recent,
	}
}

// GetJobs lists every scheduled job.
func (h *SchedulerHandler) GetJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    h.scheduler.GetJobs(),
	})
}

// RunJob triggers a job immediately.
func (h *SchedulerHandler) RunJob(c *gin.Context) {
	id := c.Param("id")
	if err := h.scheduler.RunJobNow(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Job triggered successfully",
	})
}

// CacheStats returns hit and miss counters of the recent-submissions cache.
func (h *SchedulerHandler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.recent.GetStats(),
	})
}
