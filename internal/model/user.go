package model

import "time"

// StaffUser represents an employee account as stored in the `staff_users`
// table.  The json tags are omitted because these structs are used by the
// repository layer; handlers define their own response types.
//
// Fields:
//
//	ID           – uuid primary key.
//	Username     – unique login name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – STAFF or ADMIN.
//	IsActive     – whether the account may log in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type StaffUser struct {
	ID           string    // staff_users.id
	Username     string    // staff_users.username
	Email        string    // staff_users.email
	PasswordHash string    // staff_users.password_hash
	Role         string    // staff_users.role
	IsActive     bool      // staff_users.is_active
	CreatedAt    time.Time // staff_users.created_at
	UpdatedAt    time.Time // staff_users.updated_at
}

// Actor returns the lifecycle actor for this account.
func (u StaffUser) Actor() Staff {
	return Staff{ID: u.ID, Role: u.Role}
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
