package model

import "time"

// RecalcJob asks for one entry's trust score to be recalculated.
type RecalcJob struct {
	EntryID    string
	Reason     string
	EnqueuedAt time.Time
}
