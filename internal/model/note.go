package model

import "time"

// Note is a dated free-text note attached to a person.
type Note struct {
	Meta
	Origin

	PersonID  int64
	Type      string
	Caption   string
	Text      string
	IsAlert   bool
	IsPrivate bool
	NotedAt   *time.Time
}

// Attendance records one person's presence at a group occurrence.
type Attendance struct {
	Meta
	Origin

	GroupID    int64
	PersonID   int64
	LocationID int64
	StartedAt  time.Time
	DidAttend  bool
	Note       string
}
