package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"monopolyserver/app/models"
	"monopolyserver/pkg"
	"monopolyserver/platform/database"
	"monopolyserver/platform/sessions"
)

// CreateGame registers a lobby row for discovery and spins up the in-memory
// session the socket server will drive.
func CreateGame(c *fiber.Ctx) error {
	db := database.PostgreSQLConnection()
	defer db.Close()

	gameCreateDto := new(models.GameCreateDto)
	if err := c.BodyParser(gameCreateDto); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	record := &models.GameRecord{
		Id:     pkg.RandString(8),
		Name:   gameCreateDto.Name,
		Status: models.GameStatusWaiting,
	}

	if _, err := sessions.Shared().Create(record.Id); err != nil {
		logrus.WithError(err).Error("failed to create game session")
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if _, err := db.Model(record).Insert(); err != nil {
		logrus.WithError(err).Error("failed to insert game record")
		sessions.Shared().Delete(record.Id)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(fiber.Map{"id": record.Id})
}

func GetAllAvailGames(c *fiber.Ctx) error {
	db := database.PostgreSQLConnection()
	defer db.Close()

	var games []models.GameRecord
	if err := db.Model(&games).Where("status = ?", models.GameStatusWaiting).Select(); err != nil {
		logrus.WithError(err).Error("failed to list games")
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(games)
}

// FindAvailGame picks one joinable game for quick matchmaking.
func FindAvailGame(c *fiber.Ctx) error {
	db := database.PostgreSQLConnection()
	defer db.Close()

	record := new(models.GameRecord)
	err := db.Model(record).Where("status = ?", models.GameStatusWaiting).Limit(1).Select()
	if err != nil {
		return c.JSON(fiber.Map{"status": false})
	}
	return c.JSON(fiber.Map{"status": true, "id": record.Id})
}

// VerifyGame reports whether a room code refers to a joinable game.
func VerifyGame(c *fiber.Ctx) error {
	verifyGameDto := new(models.VerifyGameDto)
	if err := c.QueryParser(verifyGameDto); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if _, err := sessions.Shared().Get(verifyGameDto.Code); err != nil {
		return c.JSON(fiber.Map{"status": false})
	}
	return c.JSON(fiber.Map{"status": true})
}
