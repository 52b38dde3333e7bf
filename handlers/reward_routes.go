package handlers

import (
	"errors"
	"log"

	"tournament-rewards-system/middleware"
	"tournament-rewards-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupRewardRoutes wires the distribution engine's HTTP surface. All routes
// sit behind the gateway token; user-context routes additionally require the
// forwarded identity headers.
func SetupRewardRoutes(app *fiber.App, rewardService *services.RewardService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Distribution (admin). ?force=true replaces existing participations in
	// place instead of skipping them — visibly an overwrite, never an addition.
	secured.Post("/tournaments/:id/rewards/distribute", func(c *fiber.Ctx) error {
		if !isAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		tournamentID := c.Params("id")
		force := c.QueryBool("force", false)
		actor := c.Locals("user_id").(string)

		summary, err := rewardService.DistributeRewards(c.Context(), tournamentID, force, actor)
		if err != nil {
			return rewardError(c, err)
		}
		return c.JSON(summary)
	})

	// Dry run for operator review; persists nothing.
	secured.Post("/tournaments/:id/rewards/preview", func(c *fiber.Ctx) error {
		if !isAdmin(c) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
		}
		summary, err := rewardService.PreviewRewards(c.Context(), c.Params("id"))
		if err != nil {
			return rewardError(c, err)
		}
		return c.JSON(summary)
	})

	secured.Get("/tournaments/:id/rewards/:user_id", func(c *fiber.Ctx) error {
		reward, err := rewardService.GetUserReward(c.Context(), c.Params("id"), c.Params("user_id"))
		if err != nil {
			return rewardError(c, err)
		}
		return c.JSON(reward)
	})

	secured.Get("/users/me/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		showcase, err := rewardService.GetUserBadgeShowcase(c.Context(), userID)
		if err != nil {
			return rewardError(c, err)
		}
		return c.JSON(showcase)
	})

	secured.Get("/users/me/skills", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		profile, err := rewardService.GetUserSkillProfile(c.Context(), userID)
		if err != nil {
			return rewardError(c, err)
		}
		return c.JSON(profile)
	})
}

func isAdmin(c *fiber.Ctx) bool {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// rewardError maps service errors onto HTTP statuses. Validation failures
// are the caller's fault; everything else is logged and reported as a 500.
func rewardError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, services.ErrTournamentNotCompleted),
		errors.Is(err, services.ErrNoStandings),
		errors.Is(err, services.ErrDuplicateParticipant),
		errors.Is(err, services.ErrInvalidStandings):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyDistributed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[REWARDS] internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
