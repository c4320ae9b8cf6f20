package order

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NumberPattern matches generated order numbers.
var NumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{3}$`)

// GenerateNumber builds ORD-<last 8 digits of epoch ms>-<3-digit suffix>.
// Uniqueness is enforced by the store, not here.
func GenerateNumber(now time.Time, suffix int) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	} else {
		ms = strings.Repeat("0", 8-len(ms)) + ms
	}
	return fmt.Sprintf("ORD-%s-%03d", ms, suffix%1000)
}

// Charges outside these bounds are treated as non-numeric. Rescaling a
// decimal with a huge exponent allocates a coefficient of that many digits.
const (
	maxAmountExponent = 18
	maxAmountDigits   = 20
)

var leadingNumberRe = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)([eE][+-]?\d+)?`)

// ParseAmount coerces a client supplied charge (the raw JSON token or query
// text) into a decimal rounded to cents. Absent, non-numeric or out of range
// values become zero; a numeric prefix such as "12.5usd" is honored.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return boundAmount(d)
	}
	m := leadingNumberRe.FindString(s)
	if m == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return boundAmount(d)
}

func boundAmount(d decimal.Decimal) decimal.Decimal {
	exp := int(d.Exponent())
	if exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero
	}
	if d.NumDigits()+exp > maxAmountDigits {
		return decimal.Zero
	}
	return d.Round(2)
}
