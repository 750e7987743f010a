package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// readProducts lee un CSV con cabecera. Columnas reconocidas (en cualquier orden):
// name, price, alert_threshold, brand, size, color, category_id. name y price son obligatorias.
// Acepta coma o punto y coma como separador (exportaciones de Excel en es-CO).
func readProducts(r io.Reader, latin1 bool) ([]dto.CreateProductRequest, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.Windows1252.NewDecoder())
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	text := strings.TrimPrefix(string(raw), "\ufeff")

	cr := csv.NewReader(strings.NewReader(text))
	if first, _, _ := strings.Cut(text, "\n"); strings.Count(first, ";") > strings.Count(first, ",") {
		cr.Comma = ';'
	}
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"name", "price"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var out []dto.CreateProductRequest
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		price, err := decimal.NewFromString(strings.ReplaceAll(get("price"), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("line %d: price %q: %w", line, get("price"), err)
		}
		alert := 0
		if s := get("alert_threshold"); s != "" {
			if alert, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("line %d: alert_threshold %q: %w", line, s, err)
			}
		}
		out = append(out, dto.CreateProductRequest{
			Name:           get("name"),
			Brand:          get("brand"),
			Size:           get("size"),
			Color:          get("color"),
			CategoryID:     get("category_id"),
			Price:          price,
			AlertThreshold: alert,
		})
	}
	return out, nil
}
