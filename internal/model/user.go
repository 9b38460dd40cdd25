package model

import "time"

// Role is the access level of an account.  Admins and managers are
// privileged: they may manage users and orders and cannot be blocked.
type Role string

const (
    RoleUser    Role = "user"
    RoleAdmin   Role = "admin"
    RoleManager Role = "manager"
)

// IsPrivileged reports whether r is one of the staff roles.
func (r Role) IsPrivileged() bool { return r == RoleAdmin || r == RoleManager }

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r.IsPrivileged() }

// BlockStatus mirrors the blocked/blocked_reason/blocked_at columns.  Reason
// and Date are nil while the account is not blocked.
type BlockStatus struct {
    Blocked bool       // users.blocked
    Reason  *string    // users.blocked_reason (nullable)
    Date    *time.Time // users.blocked_at (nullable)
}

// ShippingAddress is the default delivery address kept on a user and the
// snapshot copied into an order.  It is also bound directly from request
// bodies.
type ShippingAddress struct {
    Address    string `json:"address" validate:"required,max=255"`
    City       string `json:"city" validate:"required,max=100"`
    PostalCode string `json:"postal_code" validate:"required,max=20"`
}

// User represents an account stored in the `users` table.  Email is kept
// lower-cased so the unique index is case-insensitive.  PhoneEnc holds the
// encrypted phone number; Phone is filled in by the service layer after
// decryption and is never written back.
//
// Fields:
//  ID                 – primary key identifier of the user.
//  Email              – unique, lower-cased email address.
//  PasswordHash       – bcrypt hashed password.
//  ResetCode          – single active password reset code (nullable).
//  ResetCodeExpiresAt – when ResetCode stops being accepted.
type User struct {
    ID                 uint64           // users.id
    FirstName          string           // users.first_name
    LastName           string           // users.last_name
    Email              string           // users.email
    PasswordHash       string           // users.password_hash
    PhoneEnc           *string          // users.phone_enc (nullable)
    Phone              string           // decrypted PhoneEnc, not a column
    Gender             *string          // users.gender (nullable, "m" or "f")
    Role               Role             // users.role
    Block              BlockStatus      // users.blocked, blocked_reason, blocked_at
    ResetCode          *string          // users.reset_code (nullable)
    ResetCodeExpiresAt *time.Time       // users.reset_code_expires_at (nullable)
    Shipping           *ShippingAddress // users.ship_* (nil when unset)
    CreatedAt          time.Time        // users.created_at
    UpdatedAt          time.Time        // users.updated_at
}

// FullName joins first and last name.
func (u User) FullName() string {
    if u.LastName == "" {
        return u.FirstName
    }
    return u.FirstName + " " + u.LastName
}
