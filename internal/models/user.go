package models

import "time"

type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNotListed Gender = "not listed"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderNotListed, "":
		return true
	}
	return false
}

type Address struct {
	Street   string
	Suburb   string
	Postcode string
	State    string
	Country  string
}

// User is keyed by lowercase email; the email never changes after creation.
type User struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	DOB          *time.Time
	Gender       Gender
	Phone        string
	Address      Address
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
