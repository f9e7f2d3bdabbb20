package workflow

import (
	"fmt"

	"atelier/api/internal/store"
)

// SyncUpdate is one live item that should receive a PO number.
type SyncUpdate struct {
	ItemID   string
	PONumber string
}

// PlanPONumberSync matches purchase-order snapshot items carrying a PO
// number back to live order items. Matching prefers the frozen itemId;
// items edited on the client may arrive without one, so a
// (productId, productName) pair is the fallback key. Unmatched snapshot
// items produce warnings, never errors: the live order may legitimately
// have dropped the item since the version was cut.
func PlanPONumberSync(snapshot []store.SnapshotItem, live []store.OrderItem) (updates []SyncUpdate, warnings []string) {
	byID := make(map[string]store.OrderItem, len(live))
	byProduct := make(map[[2]string]store.OrderItem, len(live))
	for _, item := range live {
		byID[item.ID] = item
		byProduct[[2]string{item.ProductID, item.ProductName}] = item
	}

	for _, snap := range snapshot {
		poNumber := snap.Options.PONumber
		if poNumber == "" {
			continue
		}
		target, ok := byID[snap.ItemID]
		if !ok || snap.ItemID == "" {
			target, ok = byProduct[[2]string{snap.ProductID, snap.ProductName}]
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("no live item matches %q (product %s)", snap.ProductName, snap.ProductID))
			continue
		}
		if target.Options.PONumber == poNumber {
			// Already synced; re-applying is a no-op.
			continue
		}
		updates = append(updates, SyncUpdate{ItemID: target.ID, PONumber: poNumber})
	}
	return updates, warnings
}
