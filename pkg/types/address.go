package types

import (
	"fmt"
	"strings"
)

// Address is the frozen shipping snapshot stored on an order. Orders copy the
// customer's saved address at checkout time; the live address book row may be
// edited or deleted afterwards without touching order history.
type Address struct {
	RecipientName string  `json:"recipient_name"`
	Line1         string  `json:"line1"`
	Line2         *string `json:"line2,omitempty"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	PostalCode    string  `json:"postal_code"`
	Country       string  `json:"country"`
	Phone         *string `json:"phone,omitempty"`
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	for field, value := range map[string]string{
		"line1":       a.Line1,
		"city":        a.City,
		"state":       a.State,
		"postal_code": a.PostalCode,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("address: missing %s", field)
		}
	}
	return nil
}
