package models

// User is the slice of a registered account the interaction layer reads
type User struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Email   string `json:"email" db:"email"`
	IsAdmin bool   `json:"is_admin" db:"is_admin"`
}
