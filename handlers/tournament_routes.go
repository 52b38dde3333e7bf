package handlers

import (
	"tournament-rewards-system/middleware"
	"tournament-rewards-system/models"
	"tournament-rewards-system/services"
	"tournament-rewards-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SetupTournamentRoutes wires the collaborator-facing surface: result
// ingestion from the bracket service, policy attachment and badge icon
// uploads from operators, and baseline sync from onboarding.
func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	// Service-to-service: the bracket service pushes final results here once
	// a tournament completes. Gateway token auth only, no user context.
	app.Post("/tournaments/:id/standings", func(c *fiber.Ctx) error {
		var results services.TournamentResults
		if err := c.BodyParser(&results); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		tournament, err := tournamentService.IngestResults(c.Context(), c.Params("id"), results)
		if err != nil {
			return rewardError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tournament)
	})

	// Service-to-service: onboarding syncs skill baselines.
	app.Post("/users/:user_id/skill-baselines", func(c *fiber.Ctx) error {
		var req struct {
			Baselines []services.BaselineEntry `json:"baselines"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if err := tournamentService.SyncBaselines(c.Context(), c.Params("user_id"), req.Baselines); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "baselines synced", "count": len(req.Baselines)})
	})

	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Put("/tournaments/:id/reward-policy", func(c *fiber.Ctx) error {
		if !isAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		var policy models.RewardPolicy
		if err := c.BodyParser(&policy); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		tournament, err := tournamentService.AttachRewardPolicy(c.Context(), c.Params("id"), policy)
		if err != nil {
			if verr := policy.Validate(); verr != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
			}
			return rewardError(c, err)
		}
		return c.JSON(tournament)
	})

	// Badge icon assets for custom tier badges live in R2; the returned CDN
	// URL goes into the policy's badge spec.
	secured.Post("/admin/badge-icons", func(c *fiber.Ctx) error {
		if !isAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		fileHeader, err := c.FormFile("icon")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "icon file is required"})
		}
		key := "badge-icons/" + uuid.NewString() + "-" + fileHeader.Filename
		url, err := utils.UploadBadgeIcon(fileHeader, key)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload icon"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
	})
}
