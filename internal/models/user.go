package models

import "time"

// User is the user-directory identity document. Authentication data lives in a
// separate UserCredential document owned by the credential store.
type User struct {
	UserID        string    `bson:"userId" json:"userId"`
	Username      string    `bson:"username" json:"username"`
	Email         string    `bson:"email" json:"email"`
	Organisation  string    `bson:"organisation,omitempty" json:"organisation,omitempty"`
	EmailVerified bool      `bson:"emailVerified" json:"emailVerified"`
	DateOfBirth   time.Time `bson:"dateOfBirth" json:"dateOfBirth"`
	Created       time.Time `bson:"created" json:"created"`
}
