package product

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/zarqash/internal/domain/validate"
)

// MissingFieldsError lists required create fields absent from the input.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "Missing required fields: title, description, brandName, strapType, price.retail, price.display, or variants."
}

// CheckRequired verifies the fields a new product must carry. Zero prices
// count as absent.
func CheckRequired(p *Product) error {
	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(p.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(p.BrandName) == "" {
		missing = append(missing, "brandName")
	}
	if p.StrapType == "" {
		missing = append(missing, "strapType")
	}
	if p.Price.Retail.IsZero() {
		missing = append(missing, "price.retail")
	}
	if !p.Price.Display.Valid || p.Price.Display.Decimal.IsZero() {
		missing = append(missing, "price.display")
	}
	if len(p.Variants) == 0 {
		missing = append(missing, "variants")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// Validate checks every field constraint of p and returns the failures.
func (p *Product) Validate() validate.Errors {
	var errs validate.Errors

	errs.Required("title", p.Title, "Title is required")
	errs.Required("description", p.Description, "Description is required")
	errs.Required("brandName", p.BrandName, "Brand name is required")

	if !p.StrapType.Valid() {
		errs.Add("strapType", fmt.Sprintf("`%s` is not a valid strap type", p.StrapType))
	}
	if p.Price.Retail.IsNegative() {
		errs.Add("price.retail", "Retail price must be non-negative")
	}
	if !priceInRange(p.Price.Retail) {
		errs.Add("price.retail", "Retail price is out of range")
	}
	if p.Price.Display.Valid && p.Price.Display.Decimal.IsNegative() {
		errs.Add("price.display", "Display price must be non-negative")
	}
	if p.Price.Display.Valid && !priceInRange(p.Price.Display.Decimal) {
		errs.Add("price.display", "Display price is out of range")
	}
	if p.Gender != "" && !p.Gender.Valid() {
		errs.Add("gender", fmt.Sprintf("`%s` is not a valid gender", p.Gender))
	}
	for i, s := range p.Sizes {
		if !s.Valid() {
			errs.Add(fmt.Sprintf("sizes.%d", i), fmt.Sprintf("`%s` is not a valid size", s))
		}
	}
	if p.Sales < 0 {
		errs.Add("sales", "Sales must be non-negative")
	}

	seen := make(map[VariantKey]struct{}, len(p.Variants))
	for i, v := range p.Variants {
		field := fmt.Sprintf("variants.%d", i)
		okDial := errs.Required(field+".dialColor", v.DialColor, "Variant dial color is required")
		okStrap := errs.Required(field+".strapColor", v.StrapColor, "Variant strap color is required")
		if v.Stock < 0 {
			errs.Add(field+".stock", "Variant stock must be non-negative")
		}
		if !okDial || !okStrap {
			continue
		}
		if _, dup := seen[v.Key()]; dup {
			errs.Add(field, fmt.Sprintf("Duplicate variant %s", v.Key()))
		}
		seen[v.Key()] = struct{}{}
	}

	return errs
}

// priceInRange bounds prices to 15 integer digits and an exponent of 18.
func priceInRange(d decimal.Decimal) bool {
	exp := int(d.Exponent())
	return exp >= -18 && exp <= 15 && d.NumDigits()+exp <= 15
}
