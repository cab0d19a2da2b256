package efts

import "time"

// Record is one forecast value: a single ensemble member's value for one
// station at one lead time of one forecast issue.
type Record struct {
	// Dimensions
	IssueTime time.Time
	StationID int32
	Member    int32
	// LeadTime is the offset from the issue time, in the lead time step
	// units of the file. It is zero for variables without a lead time
	// dimension.
	LeadTime float64

	Value float64
}
