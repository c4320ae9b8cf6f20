package order

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/xenking/zarqash/internal/domain/validate"
)

var (
	emailRe      = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	mobileRe     = regexp.MustCompile(`^\+?[0-9]\d{0,15}$`)
	postalCodeRe = regexp.MustCompile(`(?i)^[0-9A-Z\s-]{3,10}$`)
)

// Validate checks every field constraint of the order, its lines, and both
// addresses, collecting all failures.
func (o *Order) Validate() validate.Errors {
	var errs validate.Errors

	if errs.Required("customerEmail", o.CustomerEmail, "Customer email is required") {
		errs.Match("customerEmail", o.CustomerEmail, emailRe, "Please enter a valid email")
	}

	if len(o.Items) == 0 {
		errs.Add("items", "Order must contain at least one item")
	}
	for i := range o.Items {
		validateItem(&errs, fmt.Sprintf("items.%d", i), &o.Items[i])
	}

	validateAddress(&errs, "shippingAddress", &o.ShippingAddress)
	validateAddress(&errs, "billingAddress", &o.BillingAddress)

	nonNegative(&errs, "subtotal", o.Subtotal, "Subtotal must be non-negative")
	nonNegative(&errs, "shippingCost", o.ShippingCost, "Shipping cost must be non-negative")
	nonNegative(&errs, "tax", o.Tax, "Tax must be non-negative")
	nonNegative(&errs, "discount", o.Discount, "Discount must be non-negative")
	nonNegative(&errs, "totalAmount", o.TotalAmount, "Total amount must be non-negative")

	if !o.Status.Valid() {
		errs.Add("status", fmt.Sprintf("`%s` is not a valid enum value for path `status`.", o.Status))
	}
	if !o.PaymentStatus.Valid() {
		errs.Add("paymentStatus", fmt.Sprintf("`%s` is not a valid enum value for path `paymentStatus`.", o.PaymentStatus))
	}
	if !o.PaymentMethod.Valid() {
		errs.Add("paymentMethod", fmt.Sprintf("`%s` is not a valid enum value for path `paymentMethod`.", o.PaymentMethod))
	}

	return errs
}

func validateItem(errs *validate.Errors, field string, li *LineItem) {
	errs.Required(field+".product", li.ProductID, "Product reference is required")
	errs.Required(field+".productSnapshot.title", li.Snapshot.Title, "Product snapshot title is required")
	if li.Quantity < 1 {
		errs.Add(field+".quantity", "Quantity must be at least 1")
	}
	errs.Required(field+".dialColor", li.DialColor, "Dial color is required")
	errs.Required(field+".strapColor", li.StrapColor, "Strap color is required")
	if li.Size != "" && !li.Size.Valid() {
		errs.Add(field+".size", fmt.Sprintf("`%s` is not a valid enum value for path `size`.", li.Size))
	}
	nonNegative(errs, field+".unitPrice", li.UnitPrice, "Unit price must be non-negative")
	nonNegative(errs, field+".totalPrice", li.TotalPrice, "Total price must be non-negative")
}

func validateAddress(errs *validate.Errors, field string, a *Address) {
	f := func(name string) string { return field + "." + name }

	if errs.Required(f("email"), a.Email, "Email is required") {
		errs.Match(f("email"), a.Email, emailRe, "Please enter a valid email")
	}
	if errs.Required(f("mobileNumber"), a.MobileNumber, "Mobile number is required") {
		errs.Match(f("mobileNumber"), a.MobileNumber, mobileRe, "Please enter a valid phone number")
	}
	if errs.Required(f("firstName"), a.FirstName, "First name is required") {
		errs.Length(f("firstName"), a.FirstName, 2, 50,
			"First name must be at least 2 characters", "First name cannot exceed 50 characters")
	}
	if errs.Required(f("lastName"), a.LastName, "Last name is required") {
		errs.Length(f("lastName"), a.LastName, 2, 50,
			"Last name must be at least 2 characters", "Last name cannot exceed 50 characters")
	}
	if errs.Required(f("country"), a.Country, "Country is required") {
		errs.Length(f("country"), a.Country, 2, 0, "Country must be at least 2 characters", "")
	}
	if errs.Required(f("state"), a.State, "State is required") {
		errs.Length(f("state"), a.State, 2, 0, "State must be at least 2 characters", "")
	}
	if errs.Required(f("city"), a.City, "City is required") {
		errs.Length(f("city"), a.City, 2, 0, "City must be at least 2 characters", "")
	}
	if errs.Required(f("address"), a.Address, "Address is required") {
		errs.Length(f("address"), a.Address, 10, 200,
			"Address must be at least 10 characters", "Address cannot exceed 200 characters")
	}
	if errs.Required(f("postalCode"), a.PostalCode, "Postal code is required") {
		errs.Match(f("postalCode"), a.PostalCode, postalCodeRe, "Please enter a valid postal code")
	}
}

func nonNegative(errs *validate.Errors, field string, d decimal.Decimal, message string) {
	if d.IsNegative() {
		errs.Add(field, message)
	}
}
