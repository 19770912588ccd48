package handlers

import (
	"github.com/gofiber/fiber/v3"

	"github.com/any-hub/any-web/internal/version"
)

func init() {
	MustRegister("ping", func(c fiber.Ctx) error {
		return c.SendString("pong")
	})
	MustRegister("version", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version": version.Version,
			"commit":  version.Commit,
		})
	})
}
