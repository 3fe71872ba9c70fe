package http

import (
	stderrors "errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"cms-messaging/errors"
)

// respondError maps domain errors to the stable { message } shape the
// clients expect. Anything unrecognised is a 500 with a generic body;
// the detail only goes to the server log.
func respondError(c *fiber.Ctx, log *slog.Logger, err error) error {
	var validationErrs validator.ValidationErrors

	switch {
	case stderrors.Is(err, errors.ErrConversationNotFound),
		stderrors.Is(err, errors.ErrMessageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": err.Error()})

	case stderrors.Is(err, errors.ErrNotMember):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not allowed"})

	case stderrors.Is(err, errors.ErrEmptyText),
		stderrors.Is(err, errors.ErrNoParticipants),
		stderrors.Is(err, errors.ErrInvalidPassword),
		stderrors.As(err, &validationErrs):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})

	case stderrors.Is(err, errors.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": err.Error()})

	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})

	default:
		log.Error("Unexpected failure", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error"})
	}
}
