package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xenking/zarqash/internal/domain/order"
	"github.com/xenking/zarqash/internal/domain/product"
)

type priceDoc struct {
	Retail  primitive.Decimal128  `bson:"retail"`
	Display *primitive.Decimal128 `bson:"display,omitempty"`
}

type variantDoc struct {
	DialColor  string   `bson:"dialColor"`
	StrapColor string   `bson:"strapColor"`
	Stock      int      `bson:"stock"`
	Images     []string `bson:"images"`
}

type productDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	SubTitle    string             `bson:"subTitle,omitempty"`
	Description string             `bson:"description"`
	BrandName   string             `bson:"brandName"`
	Price       priceDoc           `bson:"price"`
	StrapType   product.StrapType  `bson:"strapType"`
	Variants    []variantDoc       `bson:"variants"`
	Images      []string           `bson:"images"`
	CoverImage  string             `bson:"coverImage,omitempty"`
	Category    string             `bson:"category,omitempty"`
	SubCategory string             `bson:"subCategory,omitempty"`
	Gender      product.Gender     `bson:"gender,omitempty"`
	Sizes       []product.Size     `bson:"sizes"`
	Sales       int                `bson:"sales"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type addressDoc struct {
	Email        string `bson:"email"`
	MobileNumber string `bson:"mobileNumber"`
	FirstName    string `bson:"firstName"`
	LastName     string `bson:"lastName"`
	Country      string `bson:"country"`
	State        string `bson:"state"`
	City         string `bson:"city"`
	PostalCode   string `bson:"postalCode"`
	Address      string `bson:"address"`
}

type snapshotDoc struct {
	Title       string               `bson:"title"`
	Price       primitive.Decimal128 `bson:"price"`
	CoverImage  string               `bson:"coverImage,omitempty"`
	Category    string               `bson:"category,omitempty"`
	SubCategory string               `bson:"subCategory,omitempty"`
}

type lineItemDoc struct {
	ProductID  primitive.ObjectID   `bson:"product"`
	Snapshot   snapshotDoc          `bson:"productSnapshot"`
	Quantity   int                  `bson:"quantity"`
	Size       product.Size         `bson:"size,omitempty"`
	DialColor  string               `bson:"dialColor"`
	StrapColor string               `bson:"strapColor"`
	UnitPrice  primitive.Decimal128 `bson:"unitPrice"`
	TotalPrice primitive.Decimal128 `bson:"totalPrice"`
}

type orderDoc struct {
	ID                primitive.ObjectID   `bson:"_id"`
	Number            string               `bson:"orderNumber"`
	CustomerEmail     string               `bson:"customerEmail"`
	Items             []lineItemDoc        `bson:"items"`
	ShippingAddress   addressDoc           `bson:"shippingAddress"`
	BillingAddress    addressDoc           `bson:"billingAddress"`
	Subtotal          primitive.Decimal128 `bson:"subtotal"`
	ShippingCost      primitive.Decimal128 `bson:"shippingCost"`
	Tax               primitive.Decimal128 `bson:"tax"`
	Discount          primitive.Decimal128 `bson:"discount"`
	TotalAmount       primitive.Decimal128 `bson:"totalAmount"`
	Status            order.Status         `bson:"status"`
	PaymentStatus     order.PaymentStatus  `bson:"paymentStatus"`
	PaymentMethod     order.PaymentMethod  `bson:"paymentMethod"`
	PaymentID         string               `bson:"paymentId,omitempty"`
	TrackingNumber    string               `bson:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time           `bson:"estimatedDelivery,omitempty"`
	DeliveredAt       *time.Time           `bson:"deliveredAt,omitempty"`
	CancelledAt       *time.Time           `bson:"cancelledAt,omitempty"`
	CancelReason      string               `bson:"cancelReason,omitempty"`
	Notes             string               `bson:"notes,omitempty"`
	CreatedAt         time.Time            `bson:"createdAt"`
	UpdatedAt         time.Time            `bson:"updatedAt"`
}

// dec converts a decimal to its BSON representation. Amounts that do not
// fit a Decimal128 are rejected.
func dec(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encoding amount %s: %w", d, err)
	}
	return v, nil
}

func fromDec(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// encoder collects the first conversion failure so document builders stay
// linear.
type encoder struct {
	err error
}

func (c *encoder) dec(d decimal.Decimal) primitive.Decimal128 {
	if c.err != nil {
		return primitive.Decimal128{}
	}
	v, err := dec(d)
	if err != nil {
		c.err = err
	}
	return v
}

func (c *encoder) objectID(hex string) primitive.ObjectID {
	if c.err != nil {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.err = fmt.Errorf("invalid object id %q: %w", hex, err)
	}
	return oid
}

func toPriceDoc(c *encoder, p product.Price) priceDoc {
	doc := priceDoc{Retail: c.dec(p.Retail)}
	if p.Display.Valid {
		v := c.dec(p.Display.Decimal)
		doc.Display = &v
	}
	return doc
}

func toVariantDocs(vs []product.Variant) []variantDoc {
	out := make([]variantDoc, len(vs))
	for i, v := range vs {
		images := v.Images
		if images == nil {
			images = []string{}
		}
		out[i] = variantDoc{DialColor: v.DialColor, StrapColor: v.StrapColor, Stock: v.Stock, Images: images}
	}
	return out
}

func toProductDoc(p *product.Product) (productDoc, error) {
	var c encoder
	doc := productDoc{
		Title:       p.Title,
		SubTitle:    p.SubTitle,
		Description: p.Description,
		BrandName:   p.BrandName,
		Price:       toPriceDoc(&c, p.Price),
		StrapType:   p.StrapType,
		Variants:    toVariantDocs(p.Variants),
		Images:      nonNil(p.Images),
		CoverImage:  p.CoverImage,
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Gender:      p.Gender,
		Sizes:       nonNil(p.Sizes),
		Sales:       p.Sales,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.ID != "" {
		doc.ID = c.objectID(p.ID)
	}
	return doc, c.err
}

func (d *productDoc) toDomain() product.Product {
	p := product.Product{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		SubTitle:    d.SubTitle,
		Description: d.Description,
		BrandName:   d.BrandName,
		Price:       product.Price{Retail: fromDec(d.Price.Retail)},
		StrapType:   d.StrapType,
		Variants:    make([]product.Variant, len(d.Variants)),
		Images:      d.Images,
		CoverImage:  d.CoverImage,
		Category:    d.Category,
		SubCategory: d.SubCategory,
		Gender:      d.Gender,
		Sizes:       d.Sizes,
		Sales:       d.Sales,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.Price.Display != nil {
		p.Price.Display = decimal.NewNullDecimal(fromDec(*d.Price.Display))
	}
	for i, v := range d.Variants {
		p.Variants[i] = product.Variant{DialColor: v.DialColor, StrapColor: v.StrapColor, Stock: v.Stock, Images: v.Images}
	}
	return p
}

func toAddressDoc(a order.Address) addressDoc {
	return addressDoc(a)
}

func toOrderDoc(o *order.Order) (orderDoc, error) {
	var c encoder
	doc := orderDoc{
		Number:            o.Number,
		CustomerEmail:     o.CustomerEmail,
		Items:             make([]lineItemDoc, len(o.Items)),
		ShippingAddress:   toAddressDoc(o.ShippingAddress),
		BillingAddress:    toAddressDoc(o.BillingAddress),
		Subtotal:          c.dec(o.Subtotal),
		ShippingCost:      c.dec(o.ShippingCost),
		Tax:               c.dec(o.Tax),
		Discount:          c.dec(o.Discount),
		TotalAmount:       c.dec(o.TotalAmount),
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		PaymentMethod:     o.PaymentMethod,
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
	if o.ID != "" {
		doc.ID = c.objectID(o.ID)
	}
	for i, li := range o.Items {
		doc.Items[i] = lineItemDoc{
			ProductID: c.objectID(li.ProductID),
			Snapshot: snapshotDoc{
				Title:       li.Snapshot.Title,
				Price:       c.dec(li.Snapshot.Price),
				CoverImage:  li.Snapshot.CoverImage,
				Category:    li.Snapshot.Category,
				SubCategory: li.Snapshot.SubCategory,
			},
			Quantity:   li.Quantity,
			Size:       li.Size,
			DialColor:  li.DialColor,
			StrapColor: li.StrapColor,
			UnitPrice:  c.dec(li.UnitPrice),
			TotalPrice: c.dec(li.TotalPrice),
		}
	}
	return doc, c.err
}

func (d *orderDoc) toDomain() order.Order {
	o := order.Order{
		ID:                d.ID.Hex(),
		Number:            d.Number,
		CustomerEmail:     d.CustomerEmail,
		Items:             make([]order.LineItem, len(d.Items)),
		ShippingAddress:   order.Address(d.ShippingAddress),
		BillingAddress:    order.Address(d.BillingAddress),
		Subtotal:          fromDec(d.Subtotal),
		ShippingCost:      fromDec(d.ShippingCost),
		Tax:               fromDec(d.Tax),
		Discount:          fromDec(d.Discount),
		TotalAmount:       fromDec(d.TotalAmount),
		Status:            d.Status,
		PaymentStatus:     d.PaymentStatus,
		PaymentMethod:     d.PaymentMethod,
		PaymentID:         d.PaymentID,
		TrackingNumber:    d.TrackingNumber,
		EstimatedDelivery: utc(d.EstimatedDelivery),
		DeliveredAt:       utc(d.DeliveredAt),
		CancelledAt:       utc(d.CancelledAt),
		CancelReason:      d.CancelReason,
		Notes:             d.Notes,
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
	for i, li := range d.Items {
		o.Items[i] = order.LineItem{
			ProductID: li.ProductID.Hex(),
			Snapshot: order.Snapshot{
				Title:       li.Snapshot.Title,
				Price:       fromDec(li.Snapshot.Price),
				CoverImage:  li.Snapshot.CoverImage,
				Category:    li.Snapshot.Category,
				SubCategory: li.Snapshot.SubCategory,
			},
			Quantity:   li.Quantity,
			Size:       li.Size,
			DialColor:  li.DialColor,
			StrapColor: li.StrapColor,
			UnitPrice:  fromDec(li.UnitPrice),
			TotalPrice: fromDec(li.TotalPrice),
		}
	}
	return o
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
