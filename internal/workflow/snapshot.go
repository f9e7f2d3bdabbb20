// Package workflow holds the versioned-document rules: snapshot building,
// status transitions, and purchase-order number sync-back. It is pure
// computation; persistence stays in the store.
package workflow

import (
	"errors"
	"math"

	"atelier/api/internal/store"
)

// TaxRate is Hawaii GET applied to proposal totals. Purchase orders are
// vendor-facing and carry no tax line.
const TaxRate = 0.04712

const (
	KindProposal      = "proposal"
	KindPurchaseOrder = "purchase_order"
)

// ErrNoMatchingItems means a vendor filter selected zero live line items,
// so there is nothing to snapshot.
var ErrNoMatchingItems = errors.New("no line items match the vendor filter")

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// snapshotItem freezes one live item. Line totals are recomputed from
// unit price and quantity; a stale FinalPrice on the live row never leaks
// into a snapshot.
func snapshotItem(item store.OrderItem) store.SnapshotItem {
	return store.SnapshotItem{
		ItemID:      item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Category:    item.Category,
		VendorID:    item.VendorID,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   round2(item.UnitPrice * float64(item.Quantity)),
		Options:     item.Options,
	}
}

// BuildProposalSnapshot freezes the full live item set and computes
// proposal totals: subtotal, sales tax at TaxRate, grand total.
func BuildProposalSnapshot(items []store.OrderItem) ([]store.SnapshotItem, store.Totals) {
	snapshot := make([]store.SnapshotItem, 0, len(items))
	subtotal := 0.0
	for _, item := range items {
		frozen := snapshotItem(item)
		subtotal += frozen.LineTotal
		snapshot = append(snapshot, frozen)
	}
	subtotal = round2(subtotal)
	tax := round2(subtotal * TaxRate)
	return snapshot, store.Totals{
		Subtotal: subtotal,
		SalesTax: tax,
		Total:    round2(subtotal + tax),
	}
}

// BuildPurchaseOrderSnapshot freezes only the items belonging to one
// vendor. Shipping and other charges come from the caller; the total is
// subtotal + shipping + others, untaxed. Returns ErrNoMatchingItems when
// the vendor has no items on the order.
func BuildPurchaseOrderSnapshot(items []store.OrderItem, vendorID string, shipping, others float64) ([]store.SnapshotItem, store.Totals, error) {
	snapshot := make([]store.SnapshotItem, 0, len(items))
	subtotal := 0.0
	for _, item := range items {
		if item.VendorID != vendorID {
			continue
		}
		frozen := snapshotItem(item)
		subtotal += frozen.LineTotal
		snapshot = append(snapshot, frozen)
	}
	if len(snapshot) == 0 {
		return nil, store.Totals{}, ErrNoMatchingItems
	}
	subtotal = round2(subtotal)
	return snapshot, store.Totals{
		Subtotal: subtotal,
		Shipping: round2(shipping),
		Others:   round2(others),
		Total:    round2(subtotal + shipping + others),
	}, nil
}

// RecomputeTotals rebuilds version totals after an in-place edit of the
// snapshot items, preserving the kind's tax/charge rules.
func RecomputeTotals(kind string, items []store.SnapshotItem, shipping, others float64) store.Totals {
	subtotal := 0.0
	for i := range items {
		items[i].LineTotal = round2(items[i].UnitPrice * float64(items[i].Quantity))
		subtotal += items[i].LineTotal
	}
	subtotal = round2(subtotal)
	if kind == KindProposal {
		tax := round2(subtotal * TaxRate)
		return store.Totals{Subtotal: subtotal, SalesTax: tax, Total: round2(subtotal + tax)}
	}
	return store.Totals{
		Subtotal: subtotal,
		Shipping: round2(shipping),
		Others:   round2(others),
		Total:    round2(subtotal + shipping + others),
	}
}
