package models

import "time"

// BranchStatus enumerates branch lifecycle states.
type BranchStatus string

const (
	BranchStatusOpen     BranchStatus = "Open"
	BranchStatusClosed   BranchStatus = "Closed"
	BranchStatusArchived BranchStatus = "Archived"
)

// Branch partitions nearly every other entity. The name doubles as the key.
type Branch struct {
	Name      string       `db:"branch_name" json:"branch_name"`
	Address   string       `db:"branch_address" json:"branch_address"`
	Status    BranchStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// BranchFilter carries list query options.
type BranchFilter struct {
	Status   BranchStatus
	Page     int
	PageSize int
}
