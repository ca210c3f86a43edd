package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/multiweather/internal/apperr"
	"github.com/i474232898/multiweather/internal/bot"
)

var validate = validator.New()

// CommandHandler is satisfied by *bot.Bot.
type CommandHandler interface {
	Handle(ctx context.Context, msg bot.Message, out bot.Replier) error
}

// commandResponse is the body of a handled command. Error is the reply's
// error kind and is omitted on success.
type commandResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, handler CommandHandler) {
	v1 := app.Group("/api/v1")

	v1.Post("/commands", func(c *fiber.Ctx) error {
		var msg bot.Message
		if err := c.BodyParser(&msg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(msg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		out := &bufferedReply{}
		err := handler.Handle(c.UserContext(), msg, out)
		if errors.Is(err, bot.ErrNotCommand) {
			return c.SendStatus(fiber.StatusNoContent)
		}

		resp := commandResponse{Reply: out.String()}
		if err != nil {
			resp.Error = string(apperr.KindOf(err))
		}
		return c.JSON(resp)
	})
}

// bufferedReply collects replies for the HTTP response body.
type bufferedReply struct {
	text string
}

func (r *bufferedReply) Reply(_ context.Context, text string) error {
	if r.text != "" {
		r.text += "\n"
	}
	r.text += text
	return nil
}

func (r *bufferedReply) String() string { return r.text }
