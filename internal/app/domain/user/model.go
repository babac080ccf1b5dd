// Package user defines the account model.
package user

import "time"

// User is a registered account. PasswordHash is a bcrypt digest and is never
// serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
