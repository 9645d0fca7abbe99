package mountain

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

func RegisterRoutes(r fiber.Router, svc Catalog, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		mountains, err := svc.List(c.Context(), c.Query("country"))
		if err != nil {
			return catalogError(err)
		}
		return c.JSON(mountains)
	})

	r.Get("/:slug", func(c *fiber.Ctx) error {
		m, err := svc.GetBySlug(c.Context(), c.Params("slug"))
		if err != nil {
			return catalogError(err)
		}
		return c.JSON(m)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req Mountain
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" || req.CountrySlug == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and country_slug required")
		}
		m, err := svc.Create(c.Context(), req)
		if err != nil {
			return catalogError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})
}

func catalogError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "mountain not found")
	case errors.Is(err, ErrSlugTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
