package http

import (
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/i18n"
)

// InventoryHandler maneja las peticiones HTTP del libro: movimientos, conciliación y consultas (protegido).
type InventoryHandler struct {
	movements     *inventory.RegisterMovementUseCase
	recon         *inventory.ReconciliationUseCase
	queries       *inventory.LedgerQueryUseCase
	projector     *inventory.Projector
	replenishment *inventory.ReplenishmentUseCase
	log           zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	movements *inventory.RegisterMovementUseCase,
	recon *inventory.ReconciliationUseCase,
	queries *inventory.LedgerQueryUseCase,
	projector *inventory.Projector,
	replenishment *inventory.ReplenishmentUseCase,
	log zerolog.Logger,
) *InventoryHandler {
	return &InventoryHandler{
		movements:     movements,
		recon:         recon,
		queries:       queries,
		projector:     projector,
		replenishment: replenishment,
		log:           log,
	}
}

// RegisterMovement godoc
// @Summary      Registrar compra o venta
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "kind (INBOUND|OUTBOUND), product_id, quantity, line_value, counterparty"
// @Success      201   {object}  dto.TransactionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return writeError(c, fiber.StatusUnauthorized, i18n.KeyUnauthorized, nil)
	}
	var in dto.RegisterMovementRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	t, err := h.movements.RegisterMovementFromRequest(c.Context(), userID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(t))
}

// RegisterReturn godoc
// @Summary      Devolver una venta completa
// @Tags         reconciliation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReturnRequest  true  "outbound_id y counterparty opcional"
// @Success      201   {object}  dto.ReturnResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory/returns [post]
func (h *InventoryHandler) RegisterReturn(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.recon.RegisterReturn(c.Context(), inventory.ReturnInput{
		OutboundID:   in.OutboundID,
		RecordedBy:   GetUserID(c),
		Counterparty: in.Counterparty,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReturnResponse{
		GroupID: res.GroupID,
		Return:  toTransactionResponse(res.Return),
	})
}

// RegisterExchange godoc
// @Summary      Cambiar una venta por otros artículos del mismo valor
// @Description  El valor de las líneas nuevas (precio de catálogo) debe igualar exactamente el de la venta.
// @Tags         reconciliation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ExchangeRequest  true  "outbound_id y líneas nuevas"
// @Success      201   {object}  dto.ExchangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse  "EXCHANGE_DEFICIT / EXCHANGE_EXCESS con details.amount"
// @Router       /api/inventory/exchanges [post]
func (h *InventoryHandler) RegisterExchange(c *fiber.Ctx) error {
	var in dto.ExchangeRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	res, err := h.recon.RegisterExchange(c.Context(), inventory.ExchangeInput{
		OutboundID:   in.OutboundID,
		Lines:        toExchangeLines(in.Lines),
		RecordedBy:   GetUserID(c),
		Counterparty: in.Counterparty,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toExchangeResponse(res))
}

// QuoteExchange godoc
// @Summary      Cotizar un cambio sin registrarlo
// @Tags         reconciliation
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ExchangeRequest  true  "outbound_id y líneas nuevas"
// @Success      200   {object}  dto.ExchangeQuoteResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/exchanges/quote [post]
func (h *InventoryHandler) QuoteExchange(c *fiber.Ctx) error {
	var in dto.ExchangeRequest
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	q, err := h.recon.Quote(c.Context(), in.OutboundID, toExchangeLines(in.Lines))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toQuoteResponse(q))
}

// GetOnHand godoc
// @Summary      Cantidad disponible de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.OnHandResponse
// @Router       /api/inventory/stock/{productId} [get]
func (h *InventoryHandler) GetOnHand(c *fiber.Ctx) error {
	productID := c.Params("productId")
	qty, err := h.queries.GetOnHand(c.Context(), productID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.OnHandResponse{ProductID: productID, OnHand: qty})
}

// ListOnHand godoc
// @Summary      Cantidades disponibles de todos los productos con movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.OnHandResponse
// @Router       /api/inventory/stock [get]
func (h *InventoryHandler) ListOnHand(c *fiber.Ctx) error {
	all, err := h.queries.GetOnHandAll(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	items := make([]dto.OnHandResponse, 0, len(all))
	for id, qty := range all {
		items = append(items, dto.OnHandResponse{ProductID: id, OnHand: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return c.JSON(items)
}

// Levels godoc
// @Summary      Inventario valorizado con alertas
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.StockLevelResponse
// @Router       /api/inventory/levels [get]
func (h *InventoryHandler) Levels(c *fiber.Ctx) error {
	levels, err := h.projector.Inventory(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toStockLevelResponses(levels))
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Productos en o bajo su umbral de alerta con la cantidad sugerida de pedido,
//
//	ordenados por urgencia y unidades vendidas en los últimos 90 días.
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	list, err := h.replenishment.GenerateReplenishmentList(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

// ListTransactions godoc
// @Summary      Libro de movimientos en orden de confirmación
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        kind        query  string  false  "INBOUND|OUTBOUND|RETURN|EXCHANGE_OUT|EXCHANGE_IN"
// @Param        after_seq   query  int     false  "Cursor: devuelve movimientos con seq mayor"
// @Param        limit       query  int     false  "Máximo 500"
// @Success      200  {object}  dto.TransactionListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions [get]
func (h *InventoryHandler) ListTransactions(c *fiber.Ctx) error {
	filter := repository.TransactionFilter{ProductID: c.Query("product_id")}
	if raw := c.Query("kind"); raw != "" {
		kind, ok := entity.ParseTransactionKind(raw)
		if !ok {
			return respondError(c, h.log, domain.NewValidationError("kind", "oneof"))
		}
		filter.Kind = kind
	}
	afterSeq, err := queryInt64(c, "after_seq")
	if err != nil {
		return respondError(c, h.log, err)
	}
	limit, err := queryInt64(c, "limit")
	if err != nil {
		return respondError(c, h.log, err)
	}
	filter.AfterSeq = afterSeq
	filter.Limit = int(limit)

	list, err := h.queries.ListTransactions(c.Context(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	next := afterSeq
	if len(list) > 0 {
		next = list[len(list)-1].Seq
	}
	return c.JSON(dto.TransactionListResponse{Items: toTransactionResponses(list), NextAfterSeq: next})
}

// GetTransaction godoc
// @Summary      Obtener un movimiento
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.TransactionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions/{id} [get]
func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	t, err := h.queries.GetTransaction(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toTransactionResponse(t))
}

// ReconciliationHistory godoc
// @Summary      Conciliación de una venta
// @Description  La venta y los movimientos RETURN / EXCHANGE_* enlazados a ella (vacío si sigue abierta).
// @Tags         reconciliation
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.ReconciliationHistoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory/transactions/{id}/reconciliation [get]
func (h *InventoryHandler) ReconciliationHistory(c *fiber.Ctx) error {
	sale, lines, err := h.queries.ReconciliationHistory(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.ReconciliationHistoryResponse{
		Outbound: toTransactionResponse(sale),
		Lines:    toTransactionResponses(lines),
	})
}

// Reconcilable godoc
// @Summary      Ventas abiertas (devolvibles o cambiables)
// @Tags         reconciliation
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.TransactionResponse
// @Router       /api/inventory/reconcilable [get]
func (h *InventoryHandler) Reconcilable(c *fiber.Ctx) error {
	list, err := h.queries.ListEligibleForReconciliation(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toTransactionResponses(list))
}

// VerifyProjection godoc
// @Summary      Comparar la proyección con la reproducción del libro
// @Tags         projection
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/inventory/projection/verify [get]
func (h *InventoryHandler) VerifyProjection(c *fiber.Ctx) error {
	drift, err := h.projector.Verify(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"consistent": len(drift) == 0,
		"drift":      toDriftResponses(drift),
	})
}

// RebuildProjection godoc
// @Summary      Reconstruir la proyección desde el libro (solo admin)
// @Tags         projection
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]int
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/projection/rebuild [post]
func (h *InventoryHandler) RebuildProjection(c *fiber.Ctx) error {
	levels, err := h.projector.Rebuild(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.log.Info().Str("user_id", GetUserID(c)).Int("products", len(levels)).Msg("proyección reconstruida")
	return c.JSON(levels)
}

// queryInt64 lee un entero opcional; vacío es 0.
func queryInt64(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(name, "numeric")
	}
	return v, nil
}
