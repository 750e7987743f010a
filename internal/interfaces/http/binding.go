package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/pkg/validator"
)

var errInvalidBody = errors.New("invalid request body")

// bindBody decodifica el JSON en dst y aplica las reglas validate.
// Un cuerpo ilegible es errInvalidBody; reglas incumplidas, domain.ValidationError.
func bindBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return errors.Join(errInvalidBody, err)
	}
	return validator.ValidateStruct(dst)
}
