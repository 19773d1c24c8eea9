package model

import (
	"time"

	"gorm.io/datatypes"
)

// QueryLogEntry records one admitted query attempt. Append-only; the quota
// enforcer only ever counts rows since midnight, it never updates them. The
// composite index serves the per-user since-midnight count.
type QueryLogEntry struct {
	ID           uint           `json:"id" gorm:"primarykey"`
	UserID       uint           `json:"user_id" gorm:"index:idx_user_queries_user_created,priority:1"`
	CreatedAt    time.Time      `json:"created_at" gorm:"index:idx_user_queries_user_created,priority:2"`
	QueryDetails datatypes.JSON `json:"query_details"`
}

func (QueryLogEntry) TableName() string {
	return "user_queries"
}
