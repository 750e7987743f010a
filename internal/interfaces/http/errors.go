package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/i18n"
)

// retryAfterSeconds sugerido al cliente cuando un recurso está ocupado.
const retryAfterSeconds = 1

type errorKind struct {
	sentinel error
	status   int
	key      string
}

// Orden relevante: los errores estructurados se resuelven antes, en respondError.
var errorKinds = []errorKind{
	{errInvalidBody, fiber.StatusBadRequest, i18n.KeyInvalidBody},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, i18n.KeyValidation},
	{domain.ErrEmptyExchange, fiber.StatusBadRequest, i18n.KeyEmptyExchange},
	{domain.ErrDuplicateProductInOriginal, fiber.StatusBadRequest, i18n.KeyDuplicateProductInOriginal},
	{domain.ErrNotFound, fiber.StatusNotFound, i18n.KeyNotFound},
	{domain.ErrWrongKind, fiber.StatusUnprocessableEntity, i18n.KeyWrongKind},
	{domain.ErrAlreadyResolved, fiber.StatusConflict, i18n.KeyAlreadyResolved},
	{domain.ErrInsufficientStock, fiber.StatusConflict, i18n.KeyInsufficientStock},
	{domain.ErrExchangeDeficit, fiber.StatusUnprocessableEntity, i18n.KeyExchangeDeficit},
	{domain.ErrExchangeExcess, fiber.StatusUnprocessableEntity, i18n.KeyExchangeExcess},
	{domain.ErrBusy, fiber.StatusServiceUnavailable, i18n.KeyBusy},
	{domain.ErrConflict, fiber.StatusConflict, i18n.KeyConflict},
	{domain.ErrDuplicate, fiber.StatusConflict, i18n.KeyDuplicate},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, i18n.KeyUnauthorized},
	{domain.ErrForbidden, fiber.StatusForbidden, i18n.KeyForbidden},
	{domain.ErrLedgerCorrupt, fiber.StatusInternalServerError, i18n.KeyLedgerCorrupt},
}

// respondError traduce un error de dominio a status, código y mensaje localizado.
// Los 5xx se registran con zerolog; el resto solo en debug.
func respondError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	status, key, msg, details := classify(err)

	if domain.IsRetryable(err) {
		if details == nil {
			details = map[string]any{}
		}
		details["retryable"] = true
		if status == fiber.StatusServiceUnavailable {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		}
	}

	ev := log.Debug()
	if status >= fiber.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Str("code", key).
		Msg("petición rechazada")

	return writeMessage(c, status, key, msg, details)
}

// message clave de traducción con sus argumentos.
type message struct {
	key  string
	args []any
}

func classify(err error) (status int, code string, msg message, details map[string]any) {
	var (
		verr     *domain.ValidationError
		stockErr *domain.InsufficientStockError
		mismatch *domain.ExchangeMismatchError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, i18n.KeyValidation, message{key: i18n.KeyValidation},
			map[string]any{"fields": verr.Fields}
	case errors.As(err, &stockErr):
		return fiber.StatusConflict, i18n.KeyInsufficientStock,
			message{i18n.KeyInsufficientStockDetail, []any{stockErr.ProductID, stockErr.OnHand, stockErr.Requested}},
			map[string]any{"product_id": stockErr.ProductID, "on_hand": stockErr.OnHand, "requested": stockErr.Requested}
	case errors.As(err, &mismatch):
		code = i18n.KeyExchangeDeficit
		if mismatch.Kind == domain.MismatchExcess {
			code = i18n.KeyExchangeExcess
		}
		return fiber.StatusUnprocessableEntity, code,
			message{code + i18n.SuffixAmount, []any{i18n.Amount(mismatch.Amount)}},
			map[string]any{"amount": mismatch.Amount.String(), "kind": string(mismatch.Kind)}
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.sentinel) {
			return k.status, k.key, message{key: k.key}, nil
		}
	}
	return fiber.StatusInternalServerError, i18n.KeyInternal, message{key: i18n.KeyInternal}, nil
}

// writeError escribe dto.ErrorResponse con el mensaje de key en el idioma de Accept-Language.
func writeError(c *fiber.Ctx, status int, key string, details map[string]any) error {
	return writeMessage(c, status, key, message{key: key}, details)
}

func writeMessage(c *fiber.Ctx, status int, code string, msg message, details map[string]any) error {
	tag := i18n.Match(c.Get(fiber.HeaderAcceptLanguage))
	c.Set(fiber.HeaderContentLanguage, tag.String())
	return c.Status(status).JSON(dto.ErrorResponse{
		Code:    code,
		Message: i18n.T(tag, msg.key, msg.args...),
		Details: details,
	})
}

// ErrorHandler para fiber.Config: errores de fiber (ruta inexistente, cuerpo grande) y los no tratados.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			key := i18n.KeyInternal
			switch {
			case fe.Code == fiber.StatusNotFound:
				key = i18n.KeyNotFound
			case fe.Code == fiber.StatusTooManyRequests:
				key = i18n.KeyBusy
			case fe.Code < fiber.StatusInternalServerError:
				key = i18n.KeyInvalidBody
			}
			return writeError(c, fe.Code, key, nil)
		}
		return respondError(c, log, err)
	}
}
