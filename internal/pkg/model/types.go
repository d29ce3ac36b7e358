package model

// Status is the lifecycle state of one integration's connection.
type Status string

func (s Status) String() string {
	return string(s)
}

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusListening  Status = "listening"
	StatusError      Status = "error"
)
