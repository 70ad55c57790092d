package api

import (
	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v3"

	"github.com/defistate/defistate-amm/ammerrors"
)

// ErrInvalidQueryParameters indicates that the request query string could not
// be parsed into the expected structure.
var ErrInvalidQueryParameters = fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")

// ErrAmountRequired is returned when no amount parameter is present.
var ErrAmountRequired = fiber.NewError(fiber.StatusBadRequest, "amount is required")

// ErrInvalidAmountFormat is returned when an amount is not a base-10 integer.
var ErrInvalidAmountFormat = fiber.NewError(fiber.StatusBadRequest, "invalid amount format")

// ErrRangeRequired is returned when a sizing request names no range.
var ErrRangeRequired = fiber.NewError(fiber.StatusBadRequest, "tick_lower and tick_upper, min_price and max_price, or full_range is required")

// ErrPoolReadFailed signals that the pool snapshot could not be fetched.
var ErrPoolReadFailed = fiber.NewError(fiber.StatusBadGateway, "pool read failed")

// NewAddressRequired returns a 400 Bad Request for a missing address field.
func NewAddressRequired(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, field+" address is required")
}

// NewInvalidAddress returns a 400 Bad Request for an invalid address format.
func NewInvalidAddress(field string) error {
	return fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
}

// fromCalculation maps an engine error onto an HTTP error by its kind.
// Recoverable errors carry their user-facing message.
func fromCalculation(err error) error {
	switch ammerrors.KindOf(err) {
	case ammerrors.KindRecoverable:
		return fiber.NewError(fiber.StatusUnprocessableEntity, ammerrors.Message(err))
	default:
		return fiber.NewError(fiber.StatusInternalServerError, ammerrors.Message(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler renders errors as JSON bodies.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
	}
	return c.Status(code).JSON(errorResponse{Error: msg})
}
