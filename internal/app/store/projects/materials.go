// internal/app/store/projects/materials.go
package projectstore

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/dalemusser/sitetrack/internal/app/system/htmlsanitize"
	"github.com/dalemusser/sitetrack/internal/domain/models"
)

// MaterialsFromInput converts a client-supplied list into materials without
// cleaning them. Quantity and cost may be numbers or numeric strings; values
// that are not numbers are left unset. The store cleans what it writes, see
// CleanMaterials. The result is never nil.
func MaterialsFromInput(raw []map[string]any) []models.Material {
	out := make([]models.Material, 0, len(raw))
	for _, item := range raw {
		m := models.Material{
			Name:     stringField(item, "name"),
			Unit:     stringField(item, "unit"),
			Supplier: stringField(item, "supplier"),
		}
		if q, ok := number(item["quantity"]); ok {
			m.Quantity = q
		}
		if c, ok := number(item["cost"]); ok {
			m.Cost = &c
		}
		out = append(out, m)
	}
	return out
}

// CleanMaterials strips markup from the text fields and drops items without
// a name or unit. Negative or non-finite quantities become 0, and a cost
// that is negative or not finite is dropped. Cleaning a cleaned list returns
// it unchanged.
func CleanMaterials(in []models.Material) []models.Material {
	out := make([]models.Material, 0, len(in))
	for _, m := range in {
		if cleaned, ok := cleanMaterial(m); ok {
			out = append(out, cleaned)
		}
	}
	return out
}

func cleanMaterial(m models.Material) (models.Material, bool) {
	m.Name = htmlsanitize.PlainText(m.Name)
	m.Unit = htmlsanitize.PlainText(m.Unit)
	m.Supplier = htmlsanitize.PlainText(m.Supplier)
	if m.Name == "" || m.Unit == "" {
		return models.Material{}, false
	}
	if math.IsNaN(m.Quantity) || math.IsInf(m.Quantity, 0) || m.Quantity < 0 {
		m.Quantity = 0
	}
	if m.Cost != nil {
		c := *m.Cost
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			m.Cost = nil
		} else {
			m.Cost = &c
		}
	}
	return m, true
}

func stringField(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

// number coerces JSON numbers and numeric strings to a finite float.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
