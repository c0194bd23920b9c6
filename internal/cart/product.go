package cart

import (
	"bytes"
	"encoding/json"
	"strings"

	"aurum-storefront/internal/domain"
)

// PlaceholderImage is used when neither the variant nor the product has an image.
const PlaceholderImage = "https://placehold.co/100"

// Image is a product or variant image.
type Image struct {
	URL string `json:"url"`
}

// SelectedOption is one option value of a variant, such as "Metal: Gold".
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VariantPrice holds a variant price given either as {"amount": "..."} or as a bare value.
type VariantPrice struct {
	Amount string
}

func (p *VariantPrice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Amount domain.Price `json:"amount"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		p.Amount = string(obj.Amount)
		return nil
	}
	var v domain.Price
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Amount = string(v)
	return nil
}

// Variant is a purchasable product variant.
type Variant struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Image           *Image           `json:"image"`
	Price           *VariantPrice    `json:"price"`
	SelectedOptions []SelectedOption `json:"selectedOptions"`
}

// Product is the product context supplied when adding to the cart.
type Product struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Handle        string    `json:"handle"`
	Images        []Image   `json:"images"`
	FeaturedImage *Image    `json:"featuredImage"`
	Variants      []Variant `json:"variants"`
}

// variant returns the variant whose id is variantID or ends in /variantID, else the first.
func (p Product) variant(variantID string) *Variant {
	for i := range p.Variants {
		id := p.Variants[i].ID
		if id == variantID || strings.HasSuffix(id, "/"+variantID) {
			return &p.Variants[i]
		}
	}
	if len(p.Variants) > 0 {
		return &p.Variants[0]
	}
	return nil
}

// LineItem builds a cart line for variantID from p.
func (p Product) LineItem(variantID string, quantity int) domain.LineItem {
	v := p.variant(variantID)
	return domain.LineItem{
		VariantID:    variantID,
		ProductID:    p.ID,
		Title:        p.Title,
		VariantTitle: variantTitle(v),
		Price:        domain.Price(price(v)),
		Image:        p.image(v),
		Quantity:     quantity,
		Handle:       p.Handle,
	}
}

func (p Product) image(v *Variant) string {
	switch {
	case v != nil && v.Image != nil && v.Image.URL != "":
		return v.Image.URL
	case len(p.Images) > 0 && p.Images[0].URL != "":
		return p.Images[0].URL
	case p.FeaturedImage != nil && p.FeaturedImage.URL != "":
		return p.FeaturedImage.URL
	}
	return PlaceholderImage
}

func price(v *Variant) string {
	if v != nil && v.Price != nil && v.Price.Amount != "" {
		return v.Price.Amount
	}
	return "0"
}

func variantTitle(v *Variant) string {
	if v == nil {
		return "Default Variant"
	}
	if len(v.SelectedOptions) > 0 {
		parts := make([]string, 0, len(v.SelectedOptions))
		for _, o := range v.SelectedOptions {
			parts = append(parts, o.Name+": "+o.Value)
		}
		return strings.Join(parts, " / ")
	}
	if v.Title != "" {
		return v.Title
	}
	return "Default Variant"
}
