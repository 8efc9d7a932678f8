package domain

import (
	"sort"
	"time"
)

// PointsRecord is the cumulative score of one identifier.
// Points never decrease and records are never deleted.
type PointsRecord struct {
	Identifier string    `json:"identifier"`
	Points     int64     `json:"points"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SortLeaderboard orders records by points descending, then identifier ascending.
func SortLeaderboard(records []PointsRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Points != records[j].Points {
			return records[i].Points > records[j].Points
		}
		return records[i].Identifier < records[j].Identifier
	})
}
