package models

// Domain models matching the database schema in db/migrations/0001_init.sql

type User struct {
	ID           int64  `json:"id" db:"id"`
	Login        string `json:"login" db:"login"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Created      int64  `json:"created" db:"created"`
	Updated      int64  `json:"updated" db:"updated"`
}

// JobOffer is a published vacancy. OwnerLogin and OwnerEmail are joined
// from users when the offer is loaded.
type JobOffer struct {
	ID               int64  `json:"id" db:"id"`
	Title            string `json:"title" db:"title"`
	Location         string `json:"location,omitempty" db:"location"`
	Description      string `json:"description,omitempty" db:"description"`
	OwnerID          int64  `json:"owner_id" db:"owner_id"`
	OwnerLogin       string `json:"owner_login,omitempty" db:"-"`
	OwnerEmail       string `json:"-" db:"-"`
	Capacity         int    `json:"capacity" db:"capacity"`
	ApplicationCount int    `json:"application_count" db:"application_count"`
	Created          int64  `json:"created" db:"created"`
	Updated          int64  `json:"updated" db:"updated"`
}

// Full reports whether the offer has no capacity left.
func (o *JobOffer) Full() bool {
	return o.ApplicationCount >= o.Capacity
}

type JobApplication struct {
	ID       int64  `json:"id" db:"id"`
	OfferID  int64  `json:"offer_id" db:"offer_id"`
	Fullname string `json:"fullname" db:"fullname"`
	Email    string `json:"email" db:"email"`
	URL      string `json:"url" db:"url"`
	Created  int64  `json:"created" db:"created"`
}
