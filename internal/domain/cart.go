package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// LineItem is one cart entry. VariantID is unique within a cart.
type LineItem struct {
	VariantID    string `json:"variantId"`
	ProductID    string `json:"productId,omitempty"`
	Title        string `json:"title,omitempty"`
	VariantTitle string `json:"variantTitle,omitempty"`
	Price        Price  `json:"price,omitempty"`
	Image        string `json:"image,omitempty"`
	Quantity     int    `json:"quantity"`
	Handle       string `json:"handle,omitempty"`
}

// Price is a decimal amount kept as text. It also decodes from a bare JSON
// number, which older clients wrote for the zero fallback.
type Price string

// UnmarshalJSON accepts a JSON string or number.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// RemoteCart is the cart snapshot stored under an authenticated customer.
type RemoteCart struct {
	Items     []LineItem `json:"items"`
	Version   int64      `json:"version"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

// TotalQuantity sums quantities across items.
func TotalQuantity(items []LineItem) int {
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return total
}

// CloneItems returns a copy of items that shares no backing array.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
