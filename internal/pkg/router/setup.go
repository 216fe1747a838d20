package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/AffiliateFox/app/controllers"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers the API routes on the global controllers.
func InstallRouter(app *fiber.App) {
	setup(app, NewApiRouter(controllers.GetControllers()))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
