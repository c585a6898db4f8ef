// Package domain holds the persisted entity types shared by the store,
// core, and HTTP layers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ColumnKind is the runtime type a Format column accepts.
type ColumnKind string

const (
	KindNumber ColumnKind = "Number"
	KindString ColumnKind = "String"
)

// Column is one entry of a Format's ordered schema.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Access is one token of an Entitlement's access set.
type Access string

const (
	AccessRead          Access = "read"
	AccessWrite         Access = "write"
	AccessDelete        Access = "delete"
	AccessLimitedDelete Access = "limitedDelete"
)

// User is an account holder. Superusers bypass entitlement checks.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsSuperuser  bool      `json:"isSuperuser"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ApiKey is a long-lived credential that exchanges to a bearer token.
type ApiKey struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	TokenHash string     `json:"-"`
	Active    bool       `json:"active"`
	ExpiresAt time.Time  `json:"expiresAt"`
	CreatedAt time.Time  `json:"createdAt"`
	RotatedAt *time.Time `json:"rotatedAt,omitempty"`
}

// Format is a named, ordered schema of typed columns.
type Format struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schema      []Column  `json:"schema"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ColumnKind looks up the kind of a named column, or ok=false if absent.
func (f Format) ColumnKind(name string) (ColumnKind, bool) {
	for _, c := range f.Schema {
		if c.Name == name {
			return c.Kind, true
		}
	}
	return "", false
}

// Entitlement grants a User an access set on a Format.
type Entitlement struct {
	UserID   uuid.UUID `json:"userId"`
	FormatID int64     `json:"formatId"`
	Access   []Access  `json:"access"`
}

// Has reports whether the entitlement's access set contains want.
func (e Entitlement) Has(want Access) bool {
	for _, a := range e.Access {
		if a == want {
			return true
		}
	}
	return false
}

// UploadSession is the atomic unit of ingestion.
type UploadSession struct {
	ID          int64     `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	FormatID    int64     `json:"formatId"`
	RecordCount int       `json:"recordCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Record is a single row conforming to its format's schema.
type Record struct {
	ID              int64          `json:"id"`
	FormatID        int64          `json:"formatId"`
	UploadSessionID int64          `json:"uploadSessionId"`
	Data            map[string]any `json:"data"`
	CreatedAt       time.Time      `json:"createdAt"`
}
