package entity

import "time"

// Category agrupa productos del catálogo. ParentID vacío = categoría raíz.
type Category struct {
	ID        string
	ParentID  string
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
