package models

import (
	"database/sql"
	"time"
)

type ConfigItem struct {
	ID        uint
	Kind      string
	Label     string
	IsActive  bool
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Applicant struct {
	ID                    uint
	ExternalID            sql.NullString
	Handle                string
	Name                  string
	Status                string
	Criteria              []byte
	Questions             []byte
	Onboarding            []byte
	IdentityRolesAssigned bool
	RejectionReason       string
	ProcessedBy           sql.NullInt64
	ProcessedAt           sql.NullTime
	Notes                 string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Employee struct {
	ID                uint
	ExternalID        string
	Name              string
	Rank              string
	RankLevel         int
	BadgeNumber       sql.NullString
	Department        string
	Status            string
	HireDate          time.Time
	TerminatedAt      sql.NullTime
	TerminationReason string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type BlacklistEntry struct {
	ID         uint
	ExternalID string
	Handle     string
	Reason     string
	ExpiresAt  sql.NullTime
	CreatedBy  sql.NullInt64
	CreatedAt  time.Time
}
