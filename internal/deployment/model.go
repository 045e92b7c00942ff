// internal/deployment/model.go

package deployment

import "time"

// Deployment mirrors one row in the `deployment` table.  Rows in a
// terminal status are immutable; FileCount and TotalSize are written
// once at finalize time.
type Deployment struct {
	ID            string     `db:"id"             json:"id"`
	SiteID        uint64     `db:"site_id"        json:"site_id"`
	StoragePath   string     `db:"storage_path"   json:"storage_path"`
	Status        Status     `db:"status"         json:"status"`
	FileCount     int        `db:"file_count"     json:"file_count"`
	TotalSize     int64      `db:"total_size"     json:"total_size"`
	CommitHash    *string    `db:"commit_hash"    json:"commit_hash"`
	CommitMessage *string    `db:"commit_message" json:"commit_message"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
	FinishedAt    *time.Time `db:"finished_at"    json:"finished_at"`
}
