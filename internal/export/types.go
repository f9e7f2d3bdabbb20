// Package export renders proposal and purchase-order versions as printable
// documents in PDF and DOCX formats.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Line is one rendered line item.
type Line struct {
	ProductName string
	Category    string
	Quantity    int
	UnitPrice   float64
	LineTotal   float64
	Finish      string
	Fabric      string
	PONumber    string
}

// Document carries everything the template needs for one version.
type Document struct {
	Title      string
	Kind       string // "proposal" or "purchase_order"
	OrderID    string
	ClientName string
	VendorName string
	Number     int
	Status     string
	Notes      string
	Lines      []Line
	Subtotal   float64
	SalesTax   float64
	Shipping   float64
	Others     float64
	Total      float64
	CreatedAt  time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
