package export

import (
	"strings"
	"testing"
	"time"

	"atelier/api/internal/store"
)

func TestFromVersionProposal(t *testing.T) {
	v := store.Version{
		OrderID: "ord_1",
		Kind:    "proposal",
		Number:  3,
		Status:  "sent",
		Notes:   "Swapped the walnut finish",
		Items: []store.SnapshotItem{
			{ProductName: "Koa credenza", Category: "Storage", Quantity: 1, UnitPrice: 2400, LineTotal: 2400,
				Options: store.ItemOptions{Finish: "Natural oil"}},
		},
		Totals:    store.Totals{Subtotal: 2400, SalesTax: 113.09, Total: 2513.09},
		CreatedAt: time.Now(),
	}

	doc := FromVersion(v, "Leilani Ho", "")
	if doc.Title != "Proposal v3" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].Finish != "Natural oil" {
		t.Errorf("lines = %+v", doc.Lines)
	}
	if doc.Total != 2513.09 {
		t.Errorf("total = %v", doc.Total)
	}
}

func TestFromVersionPurchaseOrderTitle(t *testing.T) {
	v := store.Version{Kind: "purchase_order", Number: 2, VendorID: "ven_1"}
	doc := FromVersion(v, "Leilani Ho", "Pacific Woodworks")
	if doc.Title != "Purchase Order v2 — Pacific Woodworks" {
		t.Errorf("title = %q", doc.Title)
	}
}

func TestRenderDocumentHTMLProposal(t *testing.T) {
	doc := Document{
		Title:      "Proposal v1",
		Kind:       "proposal",
		OrderID:    "ord_1",
		ClientName: "Leilani Ho",
		Number:     1,
		Status:     "draft",
		Lines: []Line{
			{ProductName: "Console table", Quantity: 1, UnitPrice: 100, LineTotal: 100},
		},
		Subtotal:  100,
		SalesTax:  4.71,
		Total:     104.71,
		CreatedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}

	html, err := RenderDocumentHTML(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "Proposal v1") {
		t.Error("html should contain the title")
	}
	if !strings.Contains(html, "Console table") {
		t.Error("html should contain the line item")
	}
	if !strings.Contains(html, "$4.71") {
		t.Error("html should contain the tax line")
	}
	if strings.Contains(html, "Shipping") {
		t.Error("proposal should not render a shipping line")
	}
	if strings.Contains(html, "PO #") {
		t.Error("proposal should not render a PO number column")
	}
}

func TestRenderDocumentHTMLPurchaseOrder(t *testing.T) {
	doc := Document{
		Title:      "Purchase Order v1 — Pacific Woodworks",
		Kind:       "purchase_order",
		OrderID:    "ord_1",
		VendorName: "Pacific Woodworks",
		Number:     1,
		Status:     "sent",
		Lines: []Line{
			{ProductName: "Dining chairs", Quantity: 6, UnitPrice: 150, LineTotal: 900, PONumber: "PO-2026-014"},
		},
		Subtotal:  900,
		Shipping:  120,
		Others:    30,
		Total:     1050,
		CreatedAt: time.Now(),
	}

	html, err := RenderDocumentHTML(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "PO-2026-014") {
		t.Error("html should contain the PO number")
	}
	if !strings.Contains(html, "Shipping") {
		t.Error("purchase order should render a shipping line")
	}
	if strings.Contains(html, "Sales Tax") {
		t.Error("purchase order should not render a tax line")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Proposal v3", "Proposal-v3"},
		{"Purchase Order v2 — Pacific Woodworks", "Purchase-Order-v2--Pacific-Woodworks"},
		{"", "document"},
		{"///", "document"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatPDF {
		t.Errorf("empty format should default to pdf, got %v %v", f, err)
	}
	if f, err := ParseFormat("DOCX"); err != nil || f != FormatDOCX {
		t.Errorf("DOCX should parse, got %v %v", f, err)
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Error("xlsx should be rejected")
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	encoded := percentEncodeForDataURL("a b<c>")
	if strings.Contains(encoded, "+") {
		t.Error("spaces must encode as %20, not +")
	}
	if encoded != "a%20b%3Cc%3E" {
		t.Errorf("encoded = %q", encoded)
	}
}
