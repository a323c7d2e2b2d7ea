package models

// CredentialSchemaVersion tags stored credentials so the hashing scheme can be
// migrated in place later.
const CredentialSchemaVersion = "0.0.1"

// UserCredential is the persisted authentication document for one user. It is
// created at registration, replaced wholesale on password change and deleted
// only together with the user account. The salt and pepper are independent
// random strings mixed into the password before the slow hash; the pepper is
// kept out of API responses entirely.
type UserCredential struct {
	UserID         string `bson:"userId" json:"userId"`
	Username       string `bson:"username" json:"username"`
	HashedPassword string `bson:"hashedPassword" json:"-"`
	Salt           string `bson:"salt" json:"-"`
	Pepper         string `bson:"pepper" json:"-"`
	Role           Role   `bson:"role" json:"role"`
	SchemaVersion  string `bson:"schemaVersion" json:"schemaVersion"`
}
