package domain

import "time"

// User represents an account in the credential store
type User struct {
	ID           string    `json:"id" db:"id" bson:"_id"`
	Email        string    `json:"email" db:"email" bson:"email"`
	PasswordHash string    `json:"-" db:"password_hash" bson:"passwordHash"`
	Verified     bool      `json:"verified" db:"verified" bson:"verified"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" bson:"updatedAt"`
}

// HasPassword reports whether a password has been persisted for the user.
// Signups store the hash only once the email is confirmed.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserPatch lists the fields a partial user update may touch.
// Nil fields are left unchanged.
type UserPatch struct {
	Email        *string
	PasswordHash *string
	Verified     *bool
}

// IsEmpty reports whether the patch changes nothing
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.PasswordHash == nil && p.Verified == nil
}

// RefreshToken is a long-lived device-bound login of a user.
// Only the SHA-256 digest of the bearer value is stored.
type RefreshToken struct {
	ID         string    `json:"id" db:"id" bson:"_id"`
	UserID     string    `json:"user_id" db:"user_id" bson:"userId"`
	TokenHash  string    `json:"-" db:"token_hash" bson:"tokenHash"`
	IP         string    `json:"ip" db:"ip" bson:"ip"`
	UserAgent  string    `json:"user_agent" db:"user_agent" bson:"userAgent"`
	LastUsedAt time.Time `json:"last_used_at" db:"last_used_at" bson:"lastUsedAt"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" bson:"createdAt"`
}

// Device identifies the client a refresh token is bound to
type Device struct {
	IP        string
	UserAgent string
}

// Matches reports whether the token was last used from the given device
func (t *RefreshToken) Matches(d Device) bool {
	return t.IP == d.IP && t.UserAgent == d.UserAgent
}
