package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/interfaces/ws"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC      *usecase.ProductUseCase
	CategoryUC     *usecase.CategoryUseCase
	Movements      *inventory.RegisterMovementUseCase
	Reconciliation *inventory.ReconciliationUseCase
	Queries        *inventory.LedgerQueryUseCase
	Projector      *inventory.Projector
	Replenishment  *inventory.ReplenishmentUseCase
	Hub            *ws.Hub // nil = sin /ws
	JWTSecret      string
	Log            zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Hub != nil {
		app.Use("/ws", ws.UpgradeRequired())
		app.Get("/ws", ws.Handler(deps.Hub))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Products: lectura para todos los roles, escritura admin/bodeguero
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC, deps.Log)
	canEditCatalog := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	products.Post("/", canEditCatalog, productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", canEditCatalog, productHandler.Update)

	categories := protected.Group("/categories")
	categoryHandler := NewCategoryHandler(deps.CategoryUC, deps.Log)
	categories.Post("/", canEditCatalog, categoryHandler.Create)
	categories.Get("/", categoryHandler.List)

	// Inventario: libro, conciliación y proyección
	invGroup := protected.Group("/inventory")
	h := NewInventoryHandler(deps.Movements, deps.Reconciliation, deps.Queries, deps.Projector, deps.Replenishment, deps.Log)
	invGroup.Post("/movements", h.RegisterMovement)
	invGroup.Post("/returns", h.RegisterReturn)
	invGroup.Post("/exchanges/quote", h.QuoteExchange)
	invGroup.Post("/exchanges", h.RegisterExchange)

	invGroup.Get("/stock", h.ListOnHand)
	invGroup.Get("/stock/:productId", h.GetOnHand)
	invGroup.Get("/levels", h.Levels)
	invGroup.Get("/replenishment-list", h.GetReplenishmentList)

	invGroup.Get("/transactions", h.ListTransactions)
	invGroup.Get("/transactions/:id", h.GetTransaction)
	invGroup.Get("/transactions/:id/reconciliation", h.ReconciliationHistory)
	invGroup.Get("/reconcilable", h.Reconcilable)

	invGroup.Get("/projection/verify", h.VerifyProjection)
	invGroup.Post("/projection/rebuild", RequireRole(jwt.RoleAdmin), h.RebuildProjection)
}
