package entity

import (
	"time"

	"github.com/google/uuid"
)

// DayLayout is the calendar-date form used for window ids.
const DayLayout = "2006-01-02"

// TransferRecord is one normalized token transfer. Units is always
// positive; records that fail that are dropped at the boundary and
// never reach aggregation.
type TransferRecord struct {
	ID    uuid.UUID `json:"id"`
	Owner string    `json:"owner"`
	Units int64     `json:"units"`
	Time  time.Time `json:"time"`
}

// DayID is the UTC calendar date the record falls into.
func (r TransferRecord) DayID() string {
	return r.Time.UTC().Format(DayLayout)
}
