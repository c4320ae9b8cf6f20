package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
)

func money(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// Products.

type priceJSON struct {
	Retail  json.Number  `json:"retail"`
	Display *json.Number `json:"display"`
}

type imageJSON struct {
	URL string `json:"url"`
}

type variantJSON struct {
	DialColor  string      `json:"dialColor"`
	StrapColor string      `json:"strapColor"`
	Stock      int         `json:"stock"`
	Images     []imageJSON `json:"images"`
}

type productJSON struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	SubTitle    string        `json:"subTitle,omitempty"`
	Description string        `json:"description"`
	BrandName   string        `json:"brandName"`
	Price       priceJSON     `json:"price"`
	StrapType   string        `json:"strapType"`
	Variants    []variantJSON `json:"variants"`
	Images      []string      `json:"images"`
	CoverImage  string        `json:"coverImage,omitempty"`
	Category    string        `json:"category,omitempty"`
	SubCategory string        `json:"subCategory,omitempty"`
	Gender      string        `json:"gender,omitempty"`
	Sizes       []string      `json:"sizes"`
	Sales       int           `json:"sales"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func toPriceJSON(p product.Price) priceJSON {
	out := priceJSON{Retail: money(p.Retail)}
	if p.Display.Valid {
		d := money(p.Display.Decimal)
		out.Display = &d
	}
	return out
}

func toProductJSON(p *product.Product) productJSON {
	variants := make([]variantJSON, len(p.Variants))
	for i, v := range p.Variants {
		images := make([]imageJSON, len(v.Images))
		for j, u := range v.Images {
			images[j] = imageJSON{URL: u}
		}
		variants[i] = variantJSON{
			DialColor:  v.DialColor,
			StrapColor: v.StrapColor,
			Stock:      v.Stock,
			Images:     images,
		}
	}
	sizes := make([]string, len(p.Sizes))
	for i, s := range p.Sizes {
		sizes[i] = string(s)
	}
	images := p.Images
	if images == nil {
		images = []string{}
	}

	return productJSON{
		ID:          p.ID,
		Title:       p.Title,
		SubTitle:    p.SubTitle,
		Description: p.Description,
		BrandName:   p.BrandName,
		Price:       toPriceJSON(p.Price),
		StrapType:   string(p.StrapType),
		Variants:    variants,
		Images:      images,
		CoverImage:  p.CoverImage,
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Gender:      string(p.Gender),
		Sizes:       sizes,
		Sales:       p.Sales,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type priceInput struct {
	Retail  decimal.Decimal     `json:"retail"`
	Display decimal.NullDecimal `json:"display"`
}

func (p priceInput) toDomain() product.Price {
	return product.Price{Retail: p.Retail, Display: p.Display}
}

type variantInput struct {
	DialColor  string          `json:"dialColor"`
	StrapColor string          `json:"strapColor"`
	Stock      int             `json:"stock"`
	Images     []variantImages `json:"images"`
}

// variantImages accepts {"url": "..."} objects as well as bare URL strings.
type variantImages string

func (v *variantImages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = variantImages(s)
		return nil
	}
	var img imageJSON
	if err := json.Unmarshal(data, &img); err != nil {
		return err
	}
	*v = variantImages(img.URL)
	return nil
}

func toVariants(in []variantInput) []product.Variant {
	out := make([]product.Variant, len(in))
	for i, v := range in {
		images := make([]string, 0, len(v.Images))
		for _, u := range v.Images {
			if u != "" {
				images = append(images, string(u))
			}
		}
		out[i] = product.Variant{
			DialColor:  strings.TrimSpace(v.DialColor),
			StrapColor: strings.TrimSpace(v.StrapColor),
			Stock:      v.Stock,
			Images:     images,
		}
	}
	return out
}

func toSizes(in []string) []product.Size {
	out := make([]product.Size, len(in))
	for i, s := range in {
		out[i] = product.Size(s)
	}
	return out
}

// productInput is the body of create and patch requests. Pointers tell an
// absent field from an empty one.
type productInput struct {
	Title       *string         `json:"title"`
	SubTitle    *string         `json:"subTitle"`
	Description *string         `json:"description"`
	BrandName   *string         `json:"brandName"`
	Price       *priceInput     `json:"price"`
	StrapType   *string         `json:"strapType"`
	Variants    *[]variantInput `json:"variants"`
	Images      *[]string       `json:"images"`
	CoverImage  *string         `json:"coverImage"`
	Category    *string         `json:"category"`
	SubCategory *string         `json:"subCategory"`
	Gender      *string         `json:"gender"`
	Sizes       *[]string       `json:"sizes"`
	Sales       *int            `json:"sales"`
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func (in productInput) toProduct() *product.Product {
	p := &product.Product{
		Title:       strings.TrimSpace(deref(in.Title)),
		SubTitle:    strings.TrimSpace(deref(in.SubTitle)),
		Description: strings.TrimSpace(deref(in.Description)),
		BrandName:   strings.TrimSpace(deref(in.BrandName)),
		StrapType:   product.StrapType(deref(in.StrapType)),
		Images:      deref(in.Images),
		CoverImage:  deref(in.CoverImage),
		Category:    deref(in.Category),
		SubCategory: deref(in.SubCategory),
		Gender:      product.Gender(deref(in.Gender)),
	}
	if in.Price != nil {
		p.Price = in.Price.toDomain()
	}
	if in.Variants != nil {
		p.Variants = toVariants(*in.Variants)
	}
	if in.Sizes != nil {
		p.Sizes = toSizes(*in.Sizes)
	}
	return p
}

func (in productInput) toPatch() product.Patch {
	var p product.Patch
	p.Title = trimmed(in.Title)
	p.SubTitle = trimmed(in.SubTitle)
	p.Description = trimmed(in.Description)
	p.BrandName = trimmed(in.BrandName)
	p.Images = in.Images
	p.CoverImage = in.CoverImage
	p.Category = in.Category
	p.SubCategory = in.SubCategory
	p.Sales = in.Sales
	if in.Price != nil {
		price := in.Price.toDomain()
		p.Price = &price
	}
	if in.StrapType != nil {
		st := product.StrapType(*in.StrapType)
		p.StrapType = &st
	}
	if in.Gender != nil {
		g := product.Gender(*in.Gender)
		p.Gender = &g
	}
	if in.Variants != nil {
		vs := toVariants(*in.Variants)
		p.Variants = &vs
	}
	if in.Sizes != nil {
		ss := toSizes(*in.Sizes)
		p.Sizes = &ss
	}
	return p
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// Orders.

type addressJSON struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Country      string `json:"country"`
	State        string `json:"state"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Address      string `json:"address"`
}

func (a *addressJSON) toDomain() *order.Address {
	if a == nil {
		return nil
	}
	out := order.Address(*a)
	return &out
}

type snapshotJSON struct {
	Title       string      `json:"title"`
	Price       json.Number `json:"price"`
	CoverImage  string      `json:"coverImage,omitempty"`
	Category    string      `json:"category,omitempty"`
	SubCategory string      `json:"subCategory,omitempty"`
}

// productRefJSON is a line item's product reference resolved for display.
type productRefJSON struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Price       priceJSON `json:"price"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Category    string    `json:"category,omitempty"`
	SubCategory string    `json:"subCategory,omitempty"`
}

type lineItemJSON struct {
	// Product is a productRefJSON, or the bare id once the product is gone.
	Product         any          `json:"product"`
	ProductSnapshot snapshotJSON `json:"productSnapshot"`
	Quantity        int          `json:"quantity"`
	Size            *string      `json:"size"`
	DialColor       string       `json:"dialColor"`
	StrapColor      string       `json:"strapColor"`
	UnitPrice       json.Number  `json:"unitPrice"`
	TotalPrice      json.Number  `json:"totalPrice"`
}

type orderJSON struct {
	ID                string         `json:"id"`
	OrderNumber       string         `json:"orderNumber"`
	CustomerEmail     string         `json:"customerEmail"`
	Items             []lineItemJSON `json:"items"`
	ShippingAddress   addressJSON    `json:"shippingAddress"`
	BillingAddress    addressJSON    `json:"billingAddress"`
	Subtotal          json.Number    `json:"subtotal"`
	ShippingCost      json.Number    `json:"shippingCost"`
	Tax               json.Number    `json:"tax"`
	Discount          json.Number    `json:"discount"`
	TotalAmount       json.Number    `json:"totalAmount"`
	Status            string         `json:"status"`
	PaymentStatus     string         `json:"paymentStatus"`
	PaymentMethod     string         `json:"paymentMethod"`
	PaymentID         string         `json:"paymentId,omitempty"`
	TrackingNumber    string         `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time     `json:"estimatedDelivery,omitempty"`
	DeliveredAt       *time.Time     `json:"deliveredAt,omitempty"`
	CancelledAt       *time.Time     `json:"cancelledAt,omitempty"`
	CancelReason      string         `json:"cancelReason,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

func toOrderJSON(o *order.Order, products map[string]product.Product) orderJSON {
	items := make([]lineItemJSON, len(o.Items))
	for i, li := range o.Items {
		var ref any = li.ProductID
		if p, ok := products[li.ProductID]; ok {
			ref = productRefJSON{
				ID:          p.ID,
				Title:       p.Title,
				Price:       toPriceJSON(p.Price),
				CoverImage:  p.CoverImage,
				Category:    p.Category,
				SubCategory: p.SubCategory,
			}
		}
		var size *string
		if li.Size != "" {
			s := string(li.Size)
			size = &s
		}
		items[i] = lineItemJSON{
			Product: ref,
			ProductSnapshot: snapshotJSON{
				Title:       li.Snapshot.Title,
				Price:       money(li.Snapshot.Price),
				CoverImage:  li.Snapshot.CoverImage,
				Category:    li.Snapshot.Category,
				SubCategory: li.Snapshot.SubCategory,
			},
			Quantity:   li.Quantity,
			Size:       size,
			DialColor:  li.DialColor,
			StrapColor: li.StrapColor,
			UnitPrice:  money(li.UnitPrice),
			TotalPrice: money(li.TotalPrice),
		}
	}

	return orderJSON{
		ID:                o.ID,
		OrderNumber:       o.Number,
		CustomerEmail:     o.CustomerEmail,
		Items:             items,
		ShippingAddress:   addressJSON(o.ShippingAddress),
		BillingAddress:    addressJSON(o.BillingAddress),
		Subtotal:          money(o.Subtotal),
		ShippingCost:      money(o.ShippingCost),
		Tax:               money(o.Tax),
		Discount:          money(o.Discount),
		TotalAmount:       money(o.TotalAmount),
		Status:            string(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		PaymentMethod:     string(o.PaymentMethod),
		PaymentID:         o.PaymentID,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		CancelReason:      o.CancelReason,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

type paginationJSON struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

type orderListJSON struct {
	Orders     []orderJSON    `json:"orders"`
	Pagination paginationJSON `json:"pagination"`
}

func toOrderListJSON(res *order.ListResult) orderListJSON {
	orders := make([]orderJSON, len(res.Orders))
	for i := range res.Orders {
		orders[i] = toOrderJSON(&res.Orders[i], res.Products)
	}
	return orderListJSON{
		Orders:     orders,
		Pagination: paginationJSON(res.Pagination),
	}
}

type restorationJSON struct {
	Product    string `json:"product"`
	DialColor  string `json:"dialColor"`
	StrapColor string `json:"strapColor"`
	Quantity   int    `json:"quantity"`
	Outcome    string `json:"outcome"`
}

// amount is a charge as sent by the client: a JSON number, a numeric string,
// or anything else, which counts as zero.
type amount struct {
	set   bool
	value decimal.Decimal
}

func (a *amount) UnmarshalJSON(data []byte) error {
	a.set = true
	a.value = order.ParseAmount(string(data))
	return nil
}

func (a *amount) ptr() *decimal.Decimal {
	if a == nil || !a.set {
		return nil
	}
	v := a.value
	return &v
}

// dateTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
type dateTime struct {
	time.Time
}

func (t *dateTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "date must be a string")
	}
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return errors.Errorf("invalid date %q", s)
}

func (t *dateTime) ptr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}

type itemInput struct {
	Product    string `json:"product"`
	Quantity   int    `json:"quantity"`
	DialColor  string `json:"dialColor"`
	StrapColor string `json:"strapColor"`
	Size       string `json:"size"`
}

type placeOrderInput struct {
	Items           []itemInput  `json:"items"`
	ShippingAddress *addressJSON `json:"shippingAddress"`
	BillingAddress  *addressJSON `json:"billingAddress"`
	PaymentMethod   string       `json:"paymentMethod"`
	ShippingCost    amount       `json:"shippingCost"`
	Tax             amount       `json:"tax"`
	Discount        amount       `json:"discount"`
	Notes           string       `json:"notes"`
}

func (in placeOrderInput) toRequest() order.PlaceOrderRequest {
	items := make([]order.ItemRequest, len(in.Items))
	for i, it := range in.Items {
		items[i] = order.ItemRequest{
			ProductID:  strings.TrimSpace(it.Product),
			Quantity:   it.Quantity,
			DialColor:  it.DialColor,
			StrapColor: it.StrapColor,
			Size:       product.Size(it.Size),
		}
	}
	return order.PlaceOrderRequest{
		Items:           items,
		ShippingAddress: in.ShippingAddress.toDomain(),
		BillingAddress:  in.BillingAddress.toDomain(),
		PaymentMethod:   order.PaymentMethod(in.PaymentMethod),
		ShippingCost:    in.ShippingCost.value,
		Tax:             in.Tax.value,
		Discount:        in.Discount.value,
		Notes:           in.Notes,
	}
}

type cancelInput struct {
	CancelReason string `json:"cancelReason"`
}

type statusInput struct {
	Status            string    `json:"status"`
	TrackingNumber    string    `json:"trackingNumber"`
	EstimatedDelivery *dateTime `json:"estimatedDelivery"`
}

// orderPatchInput is the admin partial update body. Identity, order number,
// timestamps, and items are not listed and therefore ignored.
type orderPatchInput struct {
	CustomerEmail     *string      `json:"customerEmail"`
	ShippingAddress   *addressJSON `json:"shippingAddress"`
	BillingAddress    *addressJSON `json:"billingAddress"`
	ShippingCost      *amount      `json:"shippingCost"`
	Tax               *amount      `json:"tax"`
	Discount          *amount      `json:"discount"`
	Status            *string      `json:"status"`
	PaymentStatus     *string      `json:"paymentStatus"`
	PaymentMethod     *string      `json:"paymentMethod"`
	PaymentID         *string      `json:"paymentId"`
	TrackingNumber    *string      `json:"trackingNumber"`
	EstimatedDelivery *dateTime    `json:"estimatedDelivery"`
	DeliveredAt       *dateTime    `json:"deliveredAt"`
	CancelledAt       *dateTime    `json:"cancelledAt"`
	CancelReason      *string      `json:"cancelReason"`
	Notes             *string      `json:"notes"`
}

func (in orderPatchInput) toPatch() order.Patch {
	p := order.Patch{
		CustomerEmail:     in.CustomerEmail,
		ShippingAddress:   in.ShippingAddress.toDomain(),
		BillingAddress:    in.BillingAddress.toDomain(),
		ShippingCost:      in.ShippingCost.ptr(),
		Tax:               in.Tax.ptr(),
		Discount:          in.Discount.ptr(),
		PaymentID:         in.PaymentID,
		TrackingNumber:    in.TrackingNumber,
		EstimatedDelivery: in.EstimatedDelivery.ptr(),
		DeliveredAt:       in.DeliveredAt.ptr(),
		CancelledAt:       in.CancelledAt.ptr(),
		CancelReason:      in.CancelReason,
		Notes:             in.Notes,
	}
	if in.Status != nil {
		st := order.Status(*in.Status)
		p.Status = &st
	}
	if in.PaymentStatus != nil {
		ps := order.PaymentStatus(*in.PaymentStatus)
		p.PaymentStatus = &ps
	}
	if in.PaymentMethod != nil {
		pm := order.PaymentMethod(*in.PaymentMethod)
		p.PaymentMethod = &pm
	}
	return p
}
