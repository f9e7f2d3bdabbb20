package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"atelier/api/internal/export"
	"atelier/api/internal/store"
	"atelier/api/internal/util"
	"atelier/api/internal/workflow"
)

// versionScopeKind derives the document kind from the scope: proposals
// cover the whole order, purchase orders are vendor-scoped.
func versionScopeKind(vendorID string) string {
	if vendorID == "" {
		return workflow.KindProposal
	}
	return workflow.KindPurchaseOrder
}

type CreateVersionInput struct {
	Items    []store.SnapshotItem `json:"items"`
	Notes    string               `json:"notes"`
	Note     string               `json:"note"` // accepted alias
	Shipping float64              `json:"shipping"`
	Others   float64              `json:"others"`
}

type UpdateVersionInput struct {
	Items    []store.SnapshotItem `json:"items"`
	Notes    *string              `json:"notes"`
	Shipping *float64             `json:"shipping"`
	Others   *float64             `json:"others"`
}

// LatestVersion returns the highest-numbered version in the scope,
// creating version 1 from the live line items if none exists yet.
func (s *Service) LatestVersion(ctx context.Context, orderID, vendorID, createdBy string) (store.Version, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return store.Version{}, err
	}

	latest, err := s.store.GetLatestVersion(ctx, orderID, vendorID)
	if err == nil {
		return latest, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.Version{}, err
	}

	version, err := s.buildVersion(ctx, orderID, vendorID, "Initial version", 0, 0, createdBy)
	if err != nil {
		return store.Version{}, err
	}
	version.Number = 1
	if err := s.store.InsertVersion(ctx, version); err != nil {
		// A concurrent request created version 1 first; theirs wins.
		if errors.Is(err, store.ErrVersionConflict) {
			return s.store.GetLatestVersion(ctx, orderID, vendorID)
		}
		return store.Version{}, err
	}
	return s.store.GetVersion(ctx, orderID, vendorID, 1)
}

func (s *Service) GetVersion(ctx context.Context, orderID, vendorID string, number int) (store.Version, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return store.Version{}, err
	}
	return s.store.GetVersion(ctx, orderID, vendorID, number)
}

func (s *Service) ListVersions(ctx context.Context, orderID, vendorID string) ([]store.Version, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, orderID, vendorID)
}

// ListPurchaseOrders returns the latest purchase-order version for each
// vendor on the order.
func (s *Service) ListPurchaseOrders(ctx context.Context, orderID string) ([]store.Version, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListLatestPerVendor(ctx, orderID)
}

// CreateVersion cuts the next version in the scope. Items come from the
// request if given, otherwise from the latest version, otherwise from a
// fresh snapshot of the live line items. A note describing what changed is
// mandatory.
func (s *Service) CreateVersion(ctx context.Context, orderID, vendorID string, input CreateVersionInput, createdBy string) (store.Version, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return store.Version{}, err
	}
	notes := strings.TrimSpace(input.Notes)
	if notes == "" {
		notes = strings.TrimSpace(input.Note)
	}
	if notes == "" {
		return store.Version{}, domainError(http.StatusUnprocessableEntity, "NOTE_REQUIRED", "A note describing the change is required", nil)
	}
	if input.Items != nil && len(input.Items) == 0 {
		return store.Version{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "items cannot be empty", nil)
	}
	if vendorID != "" {
		if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
			return store.Version{}, err
		}
	}

	items := input.Items
	if items == nil {
		if latest, err := s.store.GetLatestVersion(ctx, orderID, vendorID); err == nil {
			items = latest.Items
		} else if !errors.Is(err, sql.ErrNoRows) {
			return store.Version{}, err
		}
	}

	var version store.Version
	var err error
	if items == nil {
		version, err = s.buildVersion(ctx, orderID, vendorID, notes, input.Shipping, input.Others, createdBy)
	} else {
		kind := versionScopeKind(vendorID)
		version = store.Version{
			ID:        util.NewID("ver"),
			OrderID:   orderID,
			VendorID:  vendorID,
			Kind:      kind,
			Items:     items,
			Totals:    workflow.RecomputeTotals(kind, items, input.Shipping, input.Others),
			Notes:     notes,
			Status:    workflow.StatusDraft,
			CreatedBy: createdBy,
		}
	}
	if err != nil {
		return store.Version{}, err
	}
	return s.allocateVersion(ctx, version)
}

// buildVersion snapshots the live items for the scope without assigning a
// number.
func (s *Service) buildVersion(ctx context.Context, orderID, vendorID, notes string, shipping, others float64, createdBy string) (store.Version, error) {
	items, err := s.store.ListOrderItems(ctx, orderID)
	if err != nil {
		return store.Version{}, err
	}

	kind := versionScopeKind(vendorID)
	var snapshot []store.SnapshotItem
	var totals store.Totals
	if kind == workflow.KindProposal {
		snapshot, totals = workflow.BuildProposalSnapshot(items)
	} else {
		snapshot, totals, err = workflow.BuildPurchaseOrderSnapshot(items, vendorID, shipping, others)
		if errors.Is(err, workflow.ErrNoMatchingItems) {
			return store.Version{}, domainError(http.StatusNotFound, "NO_MATCHING_LINE_ITEMS", "No line items belong to this vendor", nil)
		}
		if err != nil {
			return store.Version{}, err
		}
	}

	return store.Version{
		ID:        util.NewID("ver"),
		OrderID:   orderID,
		VendorID:  vendorID,
		Kind:      kind,
		Items:     snapshot,
		Totals:    totals,
		Notes:     notes,
		Status:    workflow.StatusDraft,
		CreatedBy: createdBy,
	}, nil
}

// allocateVersion assigns the next number in the scope and inserts. A
// concurrent writer taking the same number trips the unique index; we
// recompute and retry a couple of times before giving up.
func (s *Service) allocateVersion(ctx context.Context, version store.Version) (store.Version, error) {
	for attempt := 0; attempt < 3; attempt++ {
		max, err := s.store.MaxVersionNumber(ctx, version.OrderID, version.VendorID)
		if err != nil {
			return store.Version{}, err
		}
		version.Number = max + 1

		err = s.store.InsertVersion(ctx, version)
		if err == nil {
			return s.store.GetVersion(ctx, version.OrderID, version.VendorID, version.Number)
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return store.Version{}, err
		}
	}
	return store.Version{}, domainError(http.StatusConflict, "VERSION_CONFLICT", "Could not allocate a version number, try again", nil)
}

// UpdateLatestVersion edits the newest version in place. Updates are
// last-write-wins; further changes can also be cut as a new version
// through CreateVersion. Purchase-order edits that set PO numbers sync
// them back onto the live order items.
func (s *Service) UpdateLatestVersion(ctx context.Context, orderID, vendorID string, input UpdateVersionInput) (map[string]any, error) {
	return s.updateVersion(ctx, orderID, vendorID, 0, input)
}

// UpdateVersion edits the version with the given number in place.
func (s *Service) UpdateVersion(ctx context.Context, orderID, vendorID string, number int, input UpdateVersionInput) (map[string]any, error) {
	return s.updateVersion(ctx, orderID, vendorID, number, input)
}

func (s *Service) updateVersion(ctx context.Context, orderID, vendorID string, number int, input UpdateVersionInput) (map[string]any, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	var version store.Version
	var err error
	if number == 0 {
		version, err = s.store.GetLatestVersion(ctx, orderID, vendorID)
	} else {
		version, err = s.store.GetVersion(ctx, orderID, vendorID, number)
	}
	if err != nil {
		return nil, err
	}

	if input.Items != nil {
		if len(input.Items) == 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "items cannot be empty", nil)
		}
		version.Items = input.Items
	}
	if input.Notes != nil {
		if strings.TrimSpace(*input.Notes) == "" {
			return nil, domainError(http.StatusUnprocessableEntity, "NOTE_REQUIRED", "Notes cannot be cleared", nil)
		}
		version.Notes = strings.TrimSpace(*input.Notes)
	}
	shipping := version.Totals.Shipping
	others := version.Totals.Others
	if input.Shipping != nil {
		shipping = *input.Shipping
	}
	if input.Others != nil {
		others = *input.Others
	}
	version.Totals = workflow.RecomputeTotals(version.Kind, version.Items, shipping, others)

	if err := s.store.UpdateVersion(ctx, version); err != nil {
		return nil, err
	}

	warnings := []string{}
	if version.Kind == workflow.KindPurchaseOrder {
		warnings, err = s.syncPONumbers(ctx, version)
		if err != nil {
			return nil, err
		}
	}

	saved, err := s.store.GetVersion(ctx, orderID, vendorID, version.Number)
	if err != nil {
		return nil, err
	}
	return map[string]any{"version": saved, "warnings": warnings}, nil
}

// syncPONumbers writes PO numbers from a purchase-order snapshot back onto
// the live order items. Unmatched snapshot items degrade to warnings; the
// live order may have dropped them since the version was cut.
func (s *Service) syncPONumbers(ctx context.Context, version store.Version) ([]string, error) {
	live, err := s.store.ListOrderItems(ctx, version.OrderID)
	if err != nil {
		return nil, err
	}
	updates, warnings := workflow.PlanPONumberSync(version.Items, live)
	if warnings == nil {
		warnings = []string{}
	}
	for _, warning := range warnings {
		log.Printf("po sync: order %s v%d: %s", version.OrderID, version.Number, warning)
	}
	for _, update := range updates {
		if _, err := s.store.UpdateOrderItemPONumber(ctx, update.ItemID, update.PONumber); err != nil {
			return nil, err
		}
	}
	return warnings, nil
}

type VersionStatusInput struct {
	Status string `json:"status"`
}

// UpdateVersionStatus moves a version through its workflow. Sending a
// proposal notifies the client; sending a purchase order syncs PO numbers
// before the document leaves the building.
func (s *Service) UpdateVersionStatus(ctx context.Context, orderID, vendorID string, number int, newStatus string) (map[string]any, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	version, err := s.store.GetVersion(ctx, orderID, vendorID, number)
	if err != nil {
		return nil, err
	}

	if !workflow.ValidStatus(version.Kind, newStatus) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
			fmt.Sprintf("%q is not a status for %s versions", newStatus, version.Kind), nil)
	}
	if !workflow.CanTransition(version.Kind, version.Status, newStatus) {
		return nil, domainError(http.StatusConflict, "INVALID_TRANSITION",
			fmt.Sprintf("Cannot move from %s to %s", version.Status, newStatus), nil)
	}

	if err := s.store.UpdateVersionStatus(ctx, orderID, vendorID, number, newStatus); err != nil {
		return nil, err
	}

	warnings := []string{}
	if version.Kind == workflow.KindPurchaseOrder && newStatus == workflow.StatusSent {
		warnings, err = s.syncPONumbers(ctx, version)
		if err != nil {
			return nil, err
		}
	}

	if version.Kind == workflow.KindProposal && newStatus == workflow.StatusSent && s.SMTPConfigured() {
		client, err := s.store.GetUserByID(ctx, order.ClientID)
		if err == nil {
			document := fmt.Sprintf("Proposal v%d", version.Number)
			reviewURL := fmt.Sprintf("%s/orders/%s/versions/%d", s.cfg.PublicBaseURL, orderID, version.Number)
			total := fmt.Sprintf("$%.2f", version.Totals.Total)
			go func() {
				if err := s.email.SendVersionSentEmail(client.Email, client.DisplayName, document, reviewURL, total); err != nil {
					log.Printf("email: version sent to %s: %v", client.Email, err)
				}
			}()
		}
	}

	saved, err := s.store.GetVersion(ctx, orderID, vendorID, number)
	if err != nil {
		return nil, err
	}
	return map[string]any{"version": saved, "warnings": warnings}, nil
}

// ExportVersion renders a version as a downloadable document.
func (s *Service) ExportVersion(ctx context.Context, orderID, vendorID string, number int, format export.Format) (*export.Result, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	version, err := s.store.GetVersion(ctx, orderID, vendorID, number)
	if err != nil {
		return nil, err
	}

	vendorName := ""
	if vendorID != "" {
		vendor, err := s.store.GetVendor(ctx, vendorID)
		if err == nil {
			vendorName = vendor.Name
		}
	}

	doc := export.FromVersion(version, order.ClientName, vendorName)
	return s.exporter.Export(doc, format)
}
