package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/loomworks/weft"
	"github.com/loomworks/weft/types"
)

type ErrorResponse struct {
	Error Error `json:"error"`
}

type Error struct {
	Message string `json:"message"`
}

// ErrorHandler renders every handler error as a JSON body with the mapped
// status code.
var ErrorHandler = func(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	c.Set(fiber.HeaderContentType, "application/json")

	return c.Status(code).JSON(ErrorResponse{Error: Error{Message: err.Error()}})
}

type GetHealthResponse struct {
	IsServerRunning bool   `json:"isServerRunning"`
	IsWorldRunning  bool   `json:"isWorldRunning"`
	Namespace       string `json:"namespace"`
	Instance        string `json:"instance"`
}

func GetHealth(w *weft.World) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(GetHealthResponse{
			IsServerRunning: true,
			IsWorldRunning:  w.IsRunning(),
			Namespace:       w.Namespace(),
			Instance:        w.InstanceID(),
		})
	}
}

type GetWorldResponse struct {
	Namespace  string                `json:"namespace"`
	Instance   string                `json:"instance"`
	Entities   int                   `json:"entities"`
	Components []types.ComponentInfo `json:"components"`
}

func GetWorld(w *weft.World) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(GetWorldResponse{
			Namespace:  w.Namespace(),
			Instance:   w.InstanceID(),
			Entities:   w.EntityCount(),
			Components: w.GetRegisteredComponents(),
		})
	}
}

// GetState dumps every live entity with its component values. Intended for
// debugging, not for production polling of large worlds.
func GetState(w *weft.World) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		state, err := w.DebugState()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return ctx.JSON(state)
	}
}
