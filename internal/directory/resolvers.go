package directory

import (
	"strconv"
	"time"
)

// LegalAge is the minimum age for which IsOfLegalAge answers yes.
const LegalAge = 18

const (
	legalAgeYes = "Yes, it is"
	legalAgeNo  = "No, it is not"
)

// BirthYear derives the birth year from the age at now.
func BirthYear(now time.Time, age int) string {
	return strconv.Itoa(now.Year() - age)
}

func IsOfLegalAge(age int) string {
	if age >= LegalAge {
		return legalAgeYes
	}
	return legalAgeNo
}

func AddressOf(street, city string) Address {
	return Address{Street: street, City: city}
}

// PhoneOf returns the phone number, or nil when the record has none.
func PhoneOf(r PersonRecord) *string {
	if !r.HasPhone() {
		return nil
	}
	p := r.Phone
	return &p
}
