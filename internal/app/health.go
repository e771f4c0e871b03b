package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

const (
	statusPass = "pass"
	statusFail = "fail"
)

// HealthChecker pings every backing store the API cannot serve without.
type HealthChecker struct {
	checks map[string]func(context.Context) error
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		checks: map[string]func(context.Context) error{
			"postgres": infra.Postgres().Ping,
			"redis":    infra.Redis().Ping,
		},
	}
}

// run executes all checks concurrently and returns the failures by name.
func (h *HealthChecker) run(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures = make(map[string]string)
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := check(ctx); err != nil {
				mu.Lock()
				failures[name] = err.Error()
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return failures
}

// Handler answers 200 when every store responds and 503 listing the
// failing ones otherwise.
func (h *HealthChecker) Handler(c *gin.Context) {
	failures := h.run(c.Request.Context())
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  statusFail,
			"service": serviceName,
			"checks":  failures,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  statusPass,
		"service": serviceName,
	})
}
