package controllers

import (
	"github.com/gofiber/fiber/v2"

	"edumesh/services"
)

type HealthController struct {
	health *services.HealthService
}

func NewHealthController(health *services.HealthService) *HealthController {
	return &HealthController{health: health}
}

// Health reports service, database and Redis status. Unauthenticated.
func (hc *HealthController) Health(c *fiber.Ctx) error {
	report := hc.health.GetHealthReport()
	return c.Status(hc.health.HTTPStatusForOverall(report.Status)).JSON(report)
}
