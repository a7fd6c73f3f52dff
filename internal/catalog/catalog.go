// Package catalog holds the demo's static store and item data. It stands in
// for a real product catalog service; the monitoring core never depends on
// it directly.
package catalog

import "strings"

// Store is a physical grocery store location.
type Store struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Chain   string `json:"chain"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// Item is a grocery product.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category"`
	Size     string `json:"size,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

var stores = []Store{
	{ID: "1", Name: "Walmart Supercenter", Chain: "Walmart", Address: "123 Main St", City: "Austin", State: "TX", ZipCode: "78701"},
	{ID: "2", Name: "HEB Central Market", Chain: "HEB", Address: "456 Oak Ave", City: "Austin", State: "TX", ZipCode: "78702"},
	{ID: "3", Name: "Whole Foods Market", Chain: "Whole Foods", Address: "789 Lamar Blvd", City: "Austin", State: "TX", ZipCode: "78703"},
	{ID: "4", Name: "Target", Chain: "Target", Address: "321 Congress Ave", City: "Austin", State: "TX", ZipCode: "78704"},
	{ID: "5", Name: "Trader Joe's", Chain: "Trader Joe's", Address: "654 Guadalupe St", City: "Austin", State: "TX", ZipCode: "78705"},
}

var items = []Item{
	{ID: "1", Name: "Bananas", Brand: "Chiquita", Category: "Produce", Size: "1 lb", Unit: "lb"},
	{ID: "2", Name: "Milk", Brand: "Organic Valley", Category: "Dairy", Size: "1 gallon", Unit: "gallon"},
	{ID: "3", Name: "Bread", Brand: "Sara Lee", Category: "Bakery", Size: "20 oz", Unit: "loaf"},
	{ID: "4", Name: "Chicken Breast", Brand: "Perdue", Category: "Meat", Size: "1 lb", Unit: "lb"},
	{ID: "5", Name: "Eggs", Brand: "Eggland's Best", Category: "Dairy", Size: "12 count", Unit: "dozen"},
}

// Stores returns every store in the catalog.
func Stores() []Store {
	out := make([]Store, len(stores))
	copy(out, stores)
	return out
}

// Items returns every item in the catalog.
func Items() []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// StoreByID looks up a store.
func StoreByID(id string) (Store, bool) {
	for _, s := range stores {
		if s.ID == id {
			return s, true
		}
	}
	return Store{}, false
}

// ItemByID looks up an item.
func ItemByID(id string) (Item, bool) {
	for _, i := range items {
		if i.ID == id {
			return i, true
		}
	}
	return Item{}, false
}

// SearchItems returns items whose name, brand, or category contains the
// query, case-insensitively. An empty query matches everything.
func SearchItems(query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Items()
	}
	var out []Item
	for _, i := range items {
		if strings.Contains(strings.ToLower(i.Name), q) ||
			strings.Contains(strings.ToLower(i.Brand), q) ||
			strings.Contains(strings.ToLower(i.Category), q) {
			out = append(out, i)
		}
	}
	return out
}
