package tracking

import (
	"backend-tourguide/internal/auth"
	"backend-tourguide/internal/mountain"
	"backend-tourguide/internal/tour"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/scoreboard", func(c *fiber.Ctx) error {
		tours, err := svc.Scoreboard(c.Context(), c.QueryInt("limit", defaultScoreboardLimit))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(tours)
	})

	r.Get("/active", func(c *fiber.Ctx) error {
		tours, err := svc.Active(c.Context(), c.QueryInt("limit", defaultActiveLimit))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(tours)
	})

	r.Post("/:mountainSlug/attempts", authMiddleware, func(c *fiber.Ctx) error {
		var req OpenRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if req.Location != nil && !req.Location.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "location out of range")
		}
		userID, userName := auth.UserFromCtx(c)
		view, err := svc.Open(c.UserContext(), tour.Identity{UserID: userID, UserName: userName}, c.Params("mountainSlug"), req)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(view)
	})

	attempts := r.Group("/attempts", authMiddleware)

	attempts.Get("/:id", func(c *fiber.Ctx) error {
		userID, _ := auth.UserFromCtx(c)
		return respond(c, func() (View, error) { return svc.Get(userID, c.Params("id")) })
	})

	attempts.Post("/:id/start", func(c *fiber.Ctx) error {
		userID, _ := auth.UserFromCtx(c)
		return respond(c, func() (View, error) { return svc.Start(c.UserContext(), userID, c.Params("id")) })
	})

	attempts.Post("/:id/samples", func(c *fiber.Ctx) error {
		var req SampleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !req.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "location out of range")
		}
		userID, _ := auth.UserFromCtx(c)
		return respond(c, func() (View, error) { return svc.Sample(userID, c.Params("id"), req.Sample()) })
	})

	attempts.Post("/:id/location-error", func(c *fiber.Ctx) error {
		var req ErrorRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		userID, _ := auth.UserFromCtx(c)
		return respond(c, func() (View, error) { return svc.ReportError(userID, c.Params("id"), req.Message) })
	})

	attempts.Post("/:id/pause", func(c *fiber.Ctx) error {
		userID, _ := auth.UserFromCtx(c)
		return respond(c, func() (View, error) { return svc.Pause(userID, c.Params("id")) })
	})

	attempts.Post("/:id/resume", func(c *fiber.Ctx) error {
		userID, _ := auth.UserFromCtx(c)
		return respond(c, func() (View, error) { return svc.Resume(userID, c.Params("id")) })
	})

	attempts.Post("/:id/end", func(c *fiber.Ctx) error {
		userID, _ := auth.UserFromCtx(c)
		return respond(c, func() (View, error) { return svc.End(c.UserContext(), userID, c.Params("id")) })
	})

	attempts.Delete("/:id", func(c *fiber.Ctx) error {
		userID, _ := auth.UserFromCtx(c)
		if err := svc.Close(userID, c.Params("id")); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func respond(c *fiber.Ctx, op func() (View, error)) error {
	view, err := op()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(view)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrAttemptNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, mountain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, mountain.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	case errors.Is(err, tour.ErrPermissionsMissing):
		return fiber.NewError(fiber.StatusPreconditionFailed, err.Error())
	case errors.Is(err, tour.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, tour.ErrStartFailed), errors.Is(err, tour.ErrEndFailed), errors.Is(err, tour.ErrLocationStream):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
