package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. TotalClicks and UniqueCountryCount are
// aggregate counters maintained by the click-tracking transaction, never
// written by this package.
type User struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	PasswordHash       string
	Role               string
	TotalClicks        int64
	UniqueCountryCount int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DefaultRole is assigned to newly registered accounts.
const DefaultRole = "user"
