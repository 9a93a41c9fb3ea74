package money

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/davidcastellano/ledgerpay-backend/pkg/errors"
)

var centsPerDollar = decimal.NewFromInt(100)

// ToCents converts a dollar amount into Stripe's integer minor-unit
// representation. Sub-cent precision is truncated, matching Stripe's own
// handling of amount fields.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(centsPerDollar).IntPart()
}

// FromCents converts an integer cent amount back into a two-decimal dollar
// amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsPerDollar)
}

// ParseAmount converts raw caller input into a decimal dollar amount. Callers
// must supply a decimal string; anything else fails with CodeInvalidAmount
// before any remote call is made, so silent float precision loss never
// reaches the gateway.
func ParseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeInvalidAmount, "you must supply a decimal value representing dollars")
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, "you must supply a decimal value representing dollars")
	}
	return amount, nil
}
