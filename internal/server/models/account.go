package models

import "time"

// Gender is the account's self-declared gender.
type Gender string

const (
	GenderMale   Gender = "m"
	GenderFemale Gender = "f"
)

// Account is a registered user. PasswordHash holds a bcrypt digest and must
// never leave the server.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Gender       Gender
	Company      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountView is the public projection of Account.
type AccountView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Gender    Gender    `json:"gender"`
	Company   *string   `json:"company,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View returns the public projection of a.
func (a *Account) View() *AccountView {
	return &AccountView{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Gender:    a.Gender,
		Company:   a.Company,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
