// Package i18n mensajes de error localizados (es, pt-BR, en) elegidos por Accept-Language.
package i18n

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// Claves de mensaje; coinciden con dto.ErrorResponse.Code.
const (
	KeyValidation                 = "VALIDATION"
	KeyInvalidBody                = "INVALID_BODY"
	KeyNotFound                   = "NOT_FOUND"
	KeyDuplicate                  = "DUPLICATE"
	KeyWrongKind                  = "WRONG_KIND"
	KeyAlreadyResolved            = "ALREADY_RESOLVED"
	KeyInsufficientStock          = "INSUFFICIENT_STOCK"
	KeyEmptyExchange              = "EMPTY_EXCHANGE"
	KeyDuplicateProductInOriginal = "DUPLICATE_PRODUCT_IN_ORIGINAL"
	KeyExchangeDeficit            = "EXCHANGE_DEFICIT"
	KeyExchangeExcess             = "EXCHANGE_EXCESS"
	KeyBusy                       = "BUSY"
	KeyConflict                   = "CONFLICT"
	KeyLedgerCorrupt              = "LEDGER_CORRUPT"
	KeyUnauthorized               = "UNAUTHORIZED"
	KeyMissingToken               = "MISSING_TOKEN"
	KeyInvalidToken               = "INVALID_TOKEN"
	KeyMissingRole                = "MISSING_ROLE"
	KeyForbidden                  = "FORBIDDEN"
	KeyInternal                   = "INTERNAL"
)

// Variantes con argumentos de las claves anteriores.
const (
	KeyInsufficientStockDetail = KeyInsufficientStock + "_DETAIL"
	SuffixAmount               = "_AMOUNT"
	KeyExchangeDeficitAmount   = KeyExchangeDeficit + SuffixAmount
	KeyExchangeExcessAmount    = KeyExchangeExcess + SuffixAmount
)

// Default idioma cuando Accept-Language no coincide con ninguno soportado.
var Default = language.Spanish

var supported = []language.Tag{language.Spanish, language.BrazilianPortuguese, language.English}

var matcher = language.NewMatcher(supported)

var cat = catalog.NewBuilder(catalog.Fallback(Default))

type translation struct{ es, pt, en string }

var messages = map[string]translation{
	KeyValidation:                 {"datos inválidos", "dados inválidos", "invalid input"},
	KeyInvalidBody:                {"cuerpo inválido", "corpo inválido", "malformed body"},
	KeyNotFound:                   {"recurso no encontrado", "recurso não encontrado", "resource not found"},
	KeyDuplicate:                  {"el registro ya existe", "o registro já existe", "record already exists"},
	KeyWrongKind:                  {"la transacción no es una venta", "a transação não é uma venda", "transaction is not a sale"},
	KeyAlreadyResolved:            {"la venta ya fue devuelta o cambiada", "a venda já foi devolvida ou trocada", "sale already returned or exchanged"},
	KeyInsufficientStock:          {"stock insuficiente", "estoque insuficiente", "insufficient stock"},
	KeyInsufficientStockDetail:    {"stock insuficiente de %s: disponible %d, solicitado %d", "estoque insuficiente de %s: disponível %d, solicitado %d", "insufficient stock for %s: on hand %d, requested %d"},
	KeyEmptyExchange:              {"el cambio no tiene artículos nuevos", "a troca não tem itens novos", "exchange has no new items"},
	KeyDuplicateProductInOriginal: {"un artículo nuevo repite el producto vendido", "um item novo repete o produto vendido", "a new item repeats the sold product"},
	KeyExchangeDeficit:            {"el cambio no cubre el valor de la venta", "a troca não cobre o valor da venda", "exchange is below the sale value"},
	KeyExchangeDeficitAmount:      {"faltan %v para igualar el valor de la venta", "faltam %v para igualar o valor da venda", "%v short of the sale value"},
	KeyExchangeExcess:             {"el cambio excede el valor de la venta", "a troca excede o valor da venda", "exchange exceeds the sale value"},
	KeyExchangeExcessAmount:       {"el cambio excede el valor de la venta en %v", "a troca excede o valor da venda em %v", "exchange exceeds the sale value by %v"},
	KeyBusy:                       {"recurso ocupado, reintente", "recurso ocupado, tente novamente", "resource busy, retry"},
	KeyConflict:                   {"conflicto de concurrencia, reintente", "conflito de concorrência, tente novamente", "concurrent update conflict, retry"},
	KeyLedgerCorrupt:              {"el libro de movimientos es inconsistente", "o livro de movimentos está inconsistente", "ledger is inconsistent"},
	KeyUnauthorized:               {"token inválido", "token inválido", "invalid token"},
	KeyMissingToken:               {"Authorization header requerido", "cabeçalho Authorization obrigatório", "Authorization header required"},
	KeyInvalidToken:               {"token inválido o expirado", "token inválido ou expirado", "invalid or expired token"},
	KeyMissingRole:                {"el token no incluye rol", "o token não inclui papel", "token has no role"},
	KeyForbidden:                  {"acceso denegado al recurso", "acesso negado ao recurso", "access denied"},
	KeyInternal:                   {"error interno", "erro interno", "internal error"},
}

func init() {
	for key, t := range messages {
		_ = cat.SetString(language.Spanish, key, t.es)
		_ = cat.SetString(language.BrazilianPortuguese, key, t.pt)
		_ = cat.SetString(language.English, key, t.en)
	}
}

// Match elige el idioma soportado más cercano a un encabezado Accept-Language.
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return supported[idx]
}

// T traduce key con sus argumentos; una clave desconocida se devuelve tal cual.
func T(tag language.Tag, key string, args ...any) string {
	return message.NewPrinter(tag, message.Catalog(cat)).Sprintf(key, args...)
}

// Amount envuelve un monto para mostrarlo con separadores del idioma: al menos dos decimales
// y todos los significativos del monto, para que una fracción de centavo no se redondee.
func Amount(d decimal.Decimal) any {
	scale := 2
	if _, frac, ok := strings.Cut(d.String(), "."); ok && len(frac) > scale {
		scale = len(frac)
	}
	return number.Decimal(d.InexactFloat64(), number.Scale(scale))
}
