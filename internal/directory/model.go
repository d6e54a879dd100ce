// Package directory holds the person directory domain: the stored record
// shape, the per-field resolvers of the GraphQL Person view, and the query and
// mutation engine that enforces write invariants before delegating to a Store.
package directory

import (
	"encoding/json"
	"fmt"
)

// PersonRecord is the storage shape exchanged with the record store.
type PersonRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Phone  string `json:"phone,omitempty"`
	Street string `json:"street"`
	City   string `json:"city"`
}

// UnmarshalJSON decodes a record whose id is either a string or a number.
// Numeric ids are kept in their JSON text form.
func (r *PersonRecord) UnmarshalJSON(data []byte) error {
	type plain PersonRecord
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	*r = PersonRecord(aux.plain)
	r.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("person id %s is neither a string nor a number", raw)
	}
	return n.String(), nil
}

// HasPhone reports whether the record carries a phone number.
func (r PersonRecord) HasPhone() bool { return r.Phone != "" }

// NewPerson is the input of AddPerson. Phone is optional.
type NewPerson struct {
	Name   string
	Age    int
	Phone  string
	Street string
	City   string
}

// Address is the nested address view of a person.
type Address struct {
	Street string
	City   string
}

// YesNo filters persons by phone presence.
type YesNo string

const (
	Yes YesNo = "YES"
	No  YesNo = "NO"
)

// ParseYesNo converts an enum value name into a YesNo.
func ParseYesNo(s string) (YesNo, error) {
	switch YesNo(s) {
	case Yes, No:
		return YesNo(s), nil
	}
	return "", &InvalidArgumentError{Arg: "phone", Reason: "must be YES or NO"}
}

// Matches reports whether r passes the filter.
func (f YesNo) Matches(r PersonRecord) bool {
	if f == Yes {
		return r.HasPhone()
	}
	return !r.HasPhone()
}
