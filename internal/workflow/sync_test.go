package workflow

import (
	"testing"

	"atelier/api/internal/store"
)

func TestPlanPONumberSyncMatchesByItemID(t *testing.T) {
	snapshot := []store.SnapshotItem{
		{ItemID: "item_1", ProductID: "prod_1", ProductName: "Sofa", Options: store.ItemOptions{PONumber: "PO-001"}},
		{ItemID: "item_2", ProductID: "prod_2", ProductName: "Lamp"},
	}
	live := []store.OrderItem{
		{ID: "item_1", ProductID: "prod_1", ProductName: "Sofa"},
		{ID: "item_2", ProductID: "prod_2", ProductName: "Lamp"},
	}

	updates, warnings := PlanPONumberSync(snapshot, live)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	if updates[0].ItemID != "item_1" || updates[0].PONumber != "PO-001" {
		t.Errorf("unexpected update: %+v", updates[0])
	}
}

func TestPlanPONumberSyncFallsBackToProduct(t *testing.T) {
	// Client-built rows arrive without the frozen itemId.
	snapshot := []store.SnapshotItem{
		{ProductID: "prod_1", ProductName: "Sofa", Options: store.ItemOptions{PONumber: "PO-002"}},
	}
	live := []store.OrderItem{
		{ID: "item_9", ProductID: "prod_1", ProductName: "Sofa"},
	}

	updates, warnings := PlanPONumberSync(snapshot, live)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(updates) != 1 || updates[0].ItemID != "item_9" {
		t.Fatalf("expected fallback match on item_9, got %+v", updates)
	}
}

func TestPlanPONumberSyncUnmatchedWarns(t *testing.T) {
	snapshot := []store.SnapshotItem{
		{ItemID: "item_gone", ProductID: "prod_gone", ProductName: "Removed chair", Options: store.ItemOptions{PONumber: "PO-003"}},
	}
	live := []store.OrderItem{
		{ID: "item_1", ProductID: "prod_1", ProductName: "Sofa"},
	}

	updates, warnings := PlanPONumberSync(snapshot, live)
	if len(updates) != 0 {
		t.Fatalf("expected no updates, got %+v", updates)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestPlanPONumberSyncIdempotent(t *testing.T) {
	snapshot := []store.SnapshotItem{
		{ItemID: "item_1", ProductID: "prod_1", ProductName: "Sofa", Options: store.ItemOptions{PONumber: "PO-004"}},
	}
	live := []store.OrderItem{
		{ID: "item_1", ProductID: "prod_1", ProductName: "Sofa", Options: store.ItemOptions{PONumber: "PO-004"}},
	}

	updates, warnings := PlanPONumberSync(snapshot, live)
	if len(updates) != 0 {
		t.Fatalf("re-applying the same sync should plan nothing, got %+v", updates)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestPlanPONumberSyncStaleItemIDUsesFallback(t *testing.T) {
	// The frozen itemId no longer exists but the product still does.
	snapshot := []store.SnapshotItem{
		{ItemID: "item_old", ProductID: "prod_1", ProductName: "Sofa", Options: store.ItemOptions{PONumber: "PO-005"}},
	}
	live := []store.OrderItem{
		{ID: "item_new", ProductID: "prod_1", ProductName: "Sofa"},
	}

	updates, warnings := PlanPONumberSync(snapshot, live)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(updates) != 1 || updates[0].ItemID != "item_new" {
		t.Fatalf("expected fallback to item_new, got %+v", updates)
	}
}
