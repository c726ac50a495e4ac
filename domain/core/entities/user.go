package entities

import "time"

// User is the minimal slice of the user record the engine reads: enough to
// check that an owner still exists and to annotate raw canvas reads.
type User struct {
	UID       string
	Name      string
	Nickname  string
	Avatar    string
	DeletedAt *time.Time
}
