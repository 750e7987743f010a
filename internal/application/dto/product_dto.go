package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	Name           string          `json:"name" validate:"required,min=1,max=200"`
	Brand          string          `json:"brand" validate:"max=100"`
	Size           string          `json:"size" validate:"max=50"`
	Color          string          `json:"color" validate:"max=50"`
	CategoryID     string          `json:"category_id"`
	Price          decimal.Decimal `json:"price" validate:"decimal_gte0"`
	AlertThreshold int             `json:"alert_threshold" validate:"gte=0"`
}

// UpdateProductRequest entrada para actualizar un producto (la cantidad no se edita: proviene del libro).
type UpdateProductRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Brand          *string          `json:"brand" validate:"omitempty,max=100"`
	Size           *string          `json:"size" validate:"omitempty,max=50"`
	Color          *string          `json:"color" validate:"omitempty,max=50"`
	CategoryID     *string          `json:"category_id"`
	Price          *decimal.Decimal `json:"price" validate:"omitempty,decimal_gte0"`
	AlertThreshold *int             `json:"alert_threshold" validate:"omitempty,gte=0"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	Size           string          `json:"size"`
	Color          string          `json:"color"`
	CategoryID     string          `json:"category_id"`
	Price          decimal.Decimal `json:"price"`
	AlertThreshold int             `json:"alert_threshold"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
