package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxOrders   = "atelier_orders"
	idxVendors  = "atelier_vendors"
	idxProducts = "atelier_products"
)

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes.
// Returns a client that reports unhealthy if the initial connection fails;
// the health loop may bring it back later.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		primaryKey string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxOrders,
			primaryKey: "id",
			filterable: []string{"status"},
			searchable: []string{"clientName", "floorPlan"},
		},
		{
			uid:        idxVendors,
			primaryKey: "id",
			searchable: []string{"name", "contactName", "email", "notes"},
		},
		{
			uid:        idxProducts,
			primaryKey: "id",
			filterable: []string{"category", "vendorId"},
			searchable: []string{"name", "category"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: idx.primaryKey,
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		if len(idx.filterable) > 0 {
			filterableInterface := make([]interface{}, len(idx.filterable))
			for i, v := range idx.filterable {
				filterableInterface[i] = v
			}
			if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
				log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
			}
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries all three indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxOrders, ResultOrder},
		{idxVendors, ResultVendor},
		{idxProducts, ResultProduct},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		queries = append(queries, &meili.SearchRequest{
			IndexUID:              ti.uid,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		})
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxOrders:
		return ResultOrder
	case idxVendors:
		return ResultVendor
	case idxProducts:
		return ResultProduct
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")

	switch rtyp {
	case ResultOrder:
		r.Title = firstNonBlank(decodeFormattedString(hit, "clientName"), decodeString(hit, "clientName"))
		r.Snippet = decodeString(hit, "status")
	case ResultVendor:
		r.Title = firstNonBlank(decodeFormattedString(hit, "name"), decodeString(hit, "name"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "notes"), decodeString(hit, "contactName"))
	case ResultProduct:
		r.Title = firstNonBlank(decodeFormattedString(hit, "name"), decodeString(hit, "name"))
		r.Snippet = decodeString(hit, "category")
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexOrder adds or updates an order in the search index.
func (m *Meili) IndexOrder(rec OrderRecord) error {
	_, err := m.client.Index(idxOrders).AddDocuments([]OrderRecord{rec}, nil)
	return err
}

// IndexVendor adds or updates a vendor in the search index.
func (m *Meili) IndexVendor(rec VendorRecord) error {
	_, err := m.client.Index(idxVendors).AddDocuments([]VendorRecord{rec}, nil)
	return err
}

// IndexProduct adds or updates a product in the search index.
func (m *Meili) IndexProduct(rec ProductRecord) error {
	_, err := m.client.Index(idxProducts).AddDocuments([]ProductRecord{rec}, nil)
	return err
}

// DeleteVendor removes a vendor from the search index.
func (m *Meili) DeleteVendor(id string) error {
	_, err := m.client.Index(idxVendors).DeleteDocument(id, nil)
	return err
}

// IndexOrders bulk-indexes orders.
func (m *Meili) IndexOrders(records []OrderRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxOrders).AddDocuments(records, nil)
	return err
}

// IndexVendors bulk-indexes vendors.
func (m *Meili) IndexVendors(records []VendorRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxVendors).AddDocuments(records, nil)
	return err
}

// IndexProducts bulk-indexes products.
func (m *Meili) IndexProducts(records []ProductRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxProducts).AddDocuments(records, nil)
	return err
}
