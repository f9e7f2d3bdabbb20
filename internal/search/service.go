package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexOrder indexes an order (fire-and-forget to Meilisearch).
func (s *Service) IndexOrder(rec OrderRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexOrder(rec); err != nil {
			log.Printf("search: index order %s: %v", rec.ID, err)
		}
	}()
}

// IndexVendor indexes a vendor (fire-and-forget to Meilisearch).
func (s *Service) IndexVendor(rec VendorRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexVendor(rec); err != nil {
			log.Printf("search: index vendor %s: %v", rec.ID, err)
		}
	}()
}

// IndexProduct indexes a product (fire-and-forget to Meilisearch).
func (s *Service) IndexProduct(rec ProductRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexProduct(rec); err != nil {
			log.Printf("search: index product %s: %v", rec.ID, err)
		}
	}()
}

// DeleteVendor removes a vendor from the search index (fire-and-forget).
func (s *Service) DeleteVendor(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteVendor(id); err != nil {
			log.Printf("search: delete vendor %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	orders, vendors, products, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexOrders(orders); err != nil {
		log.Printf("search: reindex orders: %v", err)
	}
	if err := s.meili.IndexVendors(vendors); err != nil {
		log.Printf("search: reindex vendors: %v", err)
	}
	if err := s.meili.IndexProducts(products); err != nil {
		log.Printf("search: reindex products: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
