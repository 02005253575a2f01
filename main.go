package main

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"

	"monopolyserver/app/controllers"
	"monopolyserver/pkg/routes"
	"monopolyserver/platform/logging"
	socket "monopolyserver/platform/sockets"
)

func main() {
	logging.Init()

	app := fiber.New()

	app.Use(cors.New())
	routes.AuthRoutes(app)
	routes.GameRoutes(app)

	app.Use(jwtware.New(jwtware.Config{
		SigningKey: controllers.JwtSecret(),
	}))

	app.Get("/user/cur", controllers.Cur)

	go socket.CreateSocketIOServer()

	port := os.Getenv("PORT")
	if port == "" {
		port = "4101"
	}
	app.Listen(":" + port)
}
