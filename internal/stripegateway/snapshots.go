package stripegateway

import "time"

// CustomerSnapshot is the subset of remote customer state we mirror locally.
// Card and Subscription are nil when the remote customer has no active
// default card or no subscription.
type CustomerSnapshot struct {
	ID           string
	Email        string
	Deleted      bool
	Card         *CardSnapshot
	Subscription *SubscriptionSnapshot
}

type CardSnapshot struct {
	Fingerprint string
	Last4       string
	Kind        string
	ExpMonth    int
	ExpYear     int
}

// SubscriptionSnapshot mirrors the remote subscription fields the billing
// tables track. Timestamps are unix epoch seconds; zero means absent.
type SubscriptionSnapshot struct {
	ID                 string
	PlanID             string
	Quantity           int
	AmountCents        int64
	Status             string
	Start              int64
	CurrentPeriodStart int64
	CurrentPeriodEnd   int64
	TrialStart         int64
	TrialEnd           int64
	CancelAtPeriodEnd  bool
	CanceledAt         int64
}

type ChargeSnapshot struct {
	ID         string
	CustomerID string
	// InvoiceID is filled in by callers that learned the linkage from the
	// invoice side; the charge API does not report it.
	InvoiceID           string
	AmountCents         int64
	AmountRefundedCents int64
	Currency            string
	Paid                bool
	Refunded            bool
	Captured            bool
	Disputed            bool
	Description         string
	CardLast4           string
	CardKind            string
	Created             int64
}

type InvoiceSnapshot struct {
	ID          string
	CustomerID  string
	TotalCents  int64
	Paid        bool
	Attempted   bool
	Closed      bool
	PeriodStart int64
	PeriodEnd   int64
	Date        int64
	ChargeID    string
}

type InvoiceItemSnapshot struct {
	ID          string
	CustomerID  string
	InvoiceID   string
	AmountCents int64
	Currency    string
	Description string
}

// ChargeParams describes a remote charge creation. Amounts are integer
// cents; Capture false requests an uncaptured (auth-only) charge.
type ChargeParams struct {
	CustomerID  string
	AmountCents int64
	Currency    string
	Description string
	Capture     bool
	Destination string
}

// SubscriptionParams describes the desired remote subscription state for a
// customer. TrialEnd nil means no trial.
type SubscriptionParams struct {
	CustomerID string
	PlanID     string
	Quantity   int
	TrialEnd   *time.Time
}

type InvoiceItemParams struct {
	CustomerID  string
	AmountCents int64
	Currency    string
	Description string
	InvoiceID   string
}
