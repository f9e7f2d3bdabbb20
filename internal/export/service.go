package export

import (
	"fmt"
	"strings"

	"atelier/api/internal/store"
)

// Service provides document export functionality
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// FromVersion assembles the printable document for a version snapshot.
func FromVersion(v store.Version, clientName, vendorName string) Document {
	lines := make([]Line, 0, len(v.Items))
	for _, item := range v.Items {
		lines = append(lines, Line{
			ProductName: item.ProductName,
			Category:    item.Category,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
			Finish:      item.Options.Finish,
			Fabric:      item.Options.Fabric,
			PONumber:    item.Options.PONumber,
		})
	}

	title := fmt.Sprintf("Proposal v%d", v.Number)
	if v.Kind == "purchase_order" {
		title = fmt.Sprintf("Purchase Order v%d", v.Number)
		if vendorName != "" {
			title = fmt.Sprintf("Purchase Order v%d — %s", v.Number, vendorName)
		}
	}

	return Document{
		Title:      title,
		Kind:       v.Kind,
		OrderID:    v.OrderID,
		ClientName: clientName,
		VendorName: vendorName,
		Number:     v.Number,
		Status:     v.Status,
		Notes:      v.Notes,
		Lines:      lines,
		Subtotal:   v.Totals.Subtotal,
		SalesTax:   v.Totals.SalesTax,
		Shipping:   v.Totals.Shipping,
		Others:     v.Totals.Others,
		Total:      v.Totals.Total,
		CreatedAt:  v.CreatedAt,
	}
}

// Export renders the document in the requested format.
func (s *Service) Export(doc Document, format Format) (*Result, error) {
	html, err := RenderDocumentHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatPDF:
		return exportPDF(html, doc.Title)
	case FormatDOCX:
		return exportDOCX(html, doc.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ParseFormat validates a format query parameter.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(raw)) {
	case FormatPDF, "":
		return FormatPDF, nil
	case FormatDOCX:
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", raw)
	}
}
