package accounting

import "time"

// Entry represents a single accounting record.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	Line     string    `json:"line"`               // raw operator input
	Command  []string  `json:"command,omitempty"`  // canonical command words
	Stages   []string  `json:"stages,omitempty"`   // filter stage names in order
	Status   int       `json:"status"`             // 0 = success
	Error    string    `json:"error,omitempty"`    // error message if failed
	Duration float64   `json:"duration_ms"`        // execution time in milliseconds
	Hash     string    `json:"hash"`               // SHA-256 of this entry (with hash field empty)
}
