package ai

import (
	"context"
	"testing"

	catalogdomain "procurement_backend/internal/catalog/domain"
)

func toolRule() catalogdomain.CategoryRule {
	return catalogdomain.CategoryRule{
		Category: "herramientas",
		Fields: []catalogdomain.FieldRule{
			{ID: "quantity", Label: "cantidad", Required: true, Examples: []string{"100 piezas"}},
			{ID: "unit", Label: "unidad", Required: true, Examples: []string{"piezas", "cajas"}},
			{ID: "tool_type", Label: "tipo", Required: false, Examples: []string{"Tornillos", "martillo"}},
		},
	}
}

func TestKeywordExtract(t *testing.T) {
	extractor := NewKeywordExtractor()

	found, err := extractor.Extract(context.Background(), "Necesito 100 PIEZAS de tornillos", toolRule())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if found["quantity"] != "100" {
		t.Errorf("quantity = %q, want 100", found["quantity"])
	}
	if found["unit"] != "piezas" {
		t.Errorf("unit = %q, matching is case-insensitive", found["unit"])
	}
	if found["tool_type"] != "tornillos" {
		t.Errorf("tool_type = %q", found["tool_type"])
	}
}

func TestKeywordExtractDecimalComma(t *testing.T) {
	extractor := NewKeywordExtractor()

	found, _ := extractor.Extract(context.Background(), "necesito 2,5 cajas", toolRule())
	if found["quantity"] != "2.5" {
		t.Errorf("quantity = %q, comma decimals normalize to a dot", found["quantity"])
	}
}

func TestKeywordExtractNoMatches(t *testing.T) {
	extractor := NewKeywordExtractor()

	found, _ := extractor.Extract(context.Background(), "hola buenas tardes", toolRule())
	if len(found) != 0 {
		t.Errorf("found = %v, want nothing", found)
	}
}

func TestDetectCategoryPicksMostHits(t *testing.T) {
	paper := catalogdomain.CategoryRule{
		Category: "papeleria",
		Fields: []catalogdomain.FieldRule{
			{ID: "item_type", Label: "articulo", Required: true, Examples: []string{"hojas", "plumas", "toner"}},
		},
	}

	extractor := NewKeywordExtractor()
	category, ok, err := extractor.DetectCategory(context.Background(),
		"necesito hojas y plumas para la oficina", []catalogdomain.CategoryRule{toolRule(), paper})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !ok || category != "papeleria" {
		t.Errorf("category = %q ok=%v, want papeleria", category, ok)
	}
}

func TestDetectCategoryNoHits(t *testing.T) {
	extractor := NewKeywordExtractor()

	_, ok, _ := extractor.DetectCategory(context.Background(), "buenos dias", []catalogdomain.CategoryRule{toolRule()})
	if ok {
		t.Error("greeting must not match a category")
	}
}

func TestDetectCategoryIgnoresQuantityExamples(t *testing.T) {
	extractor := NewKeywordExtractor()

	// "100 piezas" appears only in the quantity field's examples, which the
	// detector skips; the unit example still counts.
	category, ok, _ := extractor.DetectCategory(context.Background(), "quiero 100 piezas", []catalogdomain.CategoryRule{toolRule()})
	if !ok || category != "herramientas" {
		t.Errorf("category = %q ok=%v", category, ok)
	}
}
