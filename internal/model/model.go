package model

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

type SaleStatus string

const (
	SaleStatusPending SaleStatus = "pending"
	SaleStatusPaid    SaleStatus = "paid"
	SaleStatusUnknown SaleStatus = "unknown"
)

type PaymentStatus string

const (
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusApproved    PaymentStatus = "approved"
	PaymentStatusAuthorized  PaymentStatus = "authorized"
	PaymentStatusInProcess   PaymentStatus = "in_process"
	PaymentStatusInMediation PaymentStatus = "in_mediation"
	PaymentStatusRejected    PaymentStatus = "rejected"
	PaymentStatusCancelled   PaymentStatus = "cancelled"
	PaymentStatusRefunded    PaymentStatus = "refunded"
	PaymentStatusChargedBack PaymentStatus = "charged_back"
)

var (
	saleIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	numericIDPattern = regexp.MustCompile(`^[0-9]+$`)
	// Leading zeros are not valid in a JSON number.
	jsonIntegerPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)
)

// SaleID identifies a sale in the datastore. It remembers whether it arrived
// as a JSON number so it can be echoed back in the same shape.
type SaleID struct {
	value   string
	numeric bool
}

func NewSaleID(value string) SaleID {
	return SaleID{value: value}
}

func (s SaleID) String() string { return s.value }

func (s SaleID) IsZero() bool { return s.value == "" }

func (s SaleID) Validate() error {
	if !saleIDPattern.MatchString(s.value) {
		return errors.Errorf("invalid sale id %q", s.value)
	}
	return nil
}

func (s *SaleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = SaleID{}
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = SaleID{value: v}
	default:
		if !numericIDPattern.Match(b) {
			return errors.Errorf("sale id must be a string or a non-negative integer, got %s", b)
		}
		*s = SaleID{value: string(b), numeric: true}
	}
	return nil
}

func (s SaleID) MarshalJSON() ([]byte, error) {
	if s.numeric {
		return []byte(s.value), nil
	}
	return json.Marshal(s.value)
}

// PaymentID is the provider-assigned payment id. Notifications carry it as a
// string or a number depending on the delivery channel.
type PaymentID string

func (p *PaymentID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*p = PaymentID(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrap(err, "payment id")
	}
	*p = PaymentID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as JSON numbers, matching the provider.
func (p PaymentID) MarshalJSON() ([]byte, error) {
	if jsonIntegerPattern.MatchString(string(p)) {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

func (p PaymentID) String() string { return string(p) }
