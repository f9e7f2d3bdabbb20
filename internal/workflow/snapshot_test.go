package workflow

import (
	"errors"
	"testing"

	"atelier/api/internal/store"
)

func TestBuildProposalSnapshotTotals(t *testing.T) {
	items := []store.OrderItem{
		{ID: "item_1", ProductID: "prod_1", ProductName: "Console table", Quantity: 1, UnitPrice: 100},
		{ID: "item_2", ProductID: "prod_2", ProductName: "Side chair", Quantity: 1, UnitPrice: 50},
	}

	snapshot, totals := BuildProposalSnapshot(items)
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 snapshot items, got %d", len(snapshot))
	}
	if totals.Subtotal != 150.00 {
		t.Errorf("subtotal = %v, want 150.00", totals.Subtotal)
	}
	if totals.SalesTax != 7.07 {
		t.Errorf("sales tax = %v, want 7.07", totals.SalesTax)
	}
	if totals.Total != 157.07 {
		t.Errorf("total = %v, want 157.07", totals.Total)
	}
	if totals.Shipping != 0 || totals.Others != 0 {
		t.Errorf("proposal totals should carry no shipping/others: %+v", totals)
	}
}

func TestBuildProposalSnapshotIgnoresStaleFinalPrice(t *testing.T) {
	// FinalPrice drifted after a quantity edit; the snapshot recomputes.
	items := []store.OrderItem{
		{ID: "item_1", ProductID: "prod_1", ProductName: "Bookshelf", Quantity: 3, UnitPrice: 40, FinalPrice: 40},
	}

	snapshot, totals := BuildProposalSnapshot(items)
	if snapshot[0].LineTotal != 120.00 {
		t.Errorf("line total = %v, want 120.00", snapshot[0].LineTotal)
	}
	if totals.Subtotal != 120.00 {
		t.Errorf("subtotal = %v, want 120.00", totals.Subtotal)
	}
}

func TestBuildProposalSnapshotEmptyOrder(t *testing.T) {
	snapshot, totals := BuildProposalSnapshot(nil)
	if len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot, got %d items", len(snapshot))
	}
	if totals.Total != 0 {
		t.Errorf("total = %v, want 0", totals.Total)
	}
}

func TestBuildPurchaseOrderSnapshotFiltersByVendor(t *testing.T) {
	items := []store.OrderItem{
		{ID: "item_1", ProductID: "prod_1", ProductName: "Sofa", VendorID: "ven_1", Quantity: 1, UnitPrice: 800},
		{ID: "item_2", ProductID: "prod_2", ProductName: "Lamp", VendorID: "ven_2", Quantity: 2, UnitPrice: 60},
		{ID: "item_3", ProductID: "prod_3", ProductName: "Rug", VendorID: "ven_1", Quantity: 1, UnitPrice: 200},
	}

	snapshot, totals, err := BuildPurchaseOrderSnapshot(items, "ven_1", 75, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 vendor items, got %d", len(snapshot))
	}
	if totals.Subtotal != 1000.00 {
		t.Errorf("subtotal = %v, want 1000.00", totals.Subtotal)
	}
	if totals.SalesTax != 0 {
		t.Errorf("purchase orders carry no tax, got %v", totals.SalesTax)
	}
	if totals.Total != 1085.00 {
		t.Errorf("total = %v, want 1085.00", totals.Total)
	}
}

func TestBuildPurchaseOrderSnapshotNoMatches(t *testing.T) {
	items := []store.OrderItem{
		{ID: "item_1", VendorID: "ven_1", Quantity: 1, UnitPrice: 100},
	}

	_, _, err := BuildPurchaseOrderSnapshot(items, "ven_other", 0, 0)
	if !errors.Is(err, ErrNoMatchingItems) {
		t.Fatalf("expected ErrNoMatchingItems, got %v", err)
	}
}

func TestRecomputeTotalsByKind(t *testing.T) {
	items := []store.SnapshotItem{
		{ProductID: "prod_1", Quantity: 2, UnitPrice: 25},
	}

	proposal := RecomputeTotals(KindProposal, items, 0, 0)
	if proposal.Subtotal != 50.00 || proposal.SalesTax != 2.36 || proposal.Total != 52.36 {
		t.Errorf("proposal totals = %+v", proposal)
	}

	po := RecomputeTotals(KindPurchaseOrder, items, 20, 5)
	if po.Subtotal != 50.00 || po.SalesTax != 0 || po.Total != 75.00 {
		t.Errorf("purchase order totals = %+v", po)
	}
}
