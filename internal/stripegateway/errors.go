package stripegateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v84"
)

// Kind classifies a remote failure so callers can branch on structure
// instead of parsing provider messages.
type Kind int

const (
	KindGeneric Kind = iota
	KindNotFound
	KindAlreadyPaid
	KindNothingToInvoice
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyPaid:
		return "already_paid"
	case KindNothingToInvoice:
		return "nothing_to_invoice"
	default:
		return "generic"
	}
}

// RemoteError wraps every error returned by the gateway implementation.
type RemoteError struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("stripe %s: %s (%s)", e.Op, e.Message, e.Kind)
	}
	return fmt.Sprintf("stripe %s: %s", e.Op, e.Kind)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

func IsAlreadyPaid(err error) bool {
	return kindOf(err) == KindAlreadyPaid
}

func IsNothingToInvoice(err error) bool {
	return kindOf(err) == KindNothingToInvoice
}

func kindOf(err error) Kind {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}
	return KindGeneric
}

// Codes Stripe reports for invoice payment attempts that cannot proceed.
const (
	codeInvoiceAlreadyPaid = "invoice_already_paid"
	codeNoCustomerLines    = "invoice_no_customer_line_items"
	codeNoSubscriptionLns  = "invoice_no_subscription_line_items"
)

func remoteErr(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindGeneric
	message := err.Error()
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		message = sErr.Msg
		switch {
		case sErr.Code == stripe.ErrorCodeResourceMissing,
			sErr.HTTPStatusCode == http.StatusNotFound:
			kind = KindNotFound
		case string(sErr.Code) == codeInvoiceAlreadyPaid:
			kind = KindAlreadyPaid
		case string(sErr.Code) == codeNoCustomerLines,
			string(sErr.Code) == codeNoSubscriptionLns:
			kind = KindNothingToInvoice
		}
	}
	return &RemoteError{Kind: kind, Op: op, Message: message, Err: err}
}
