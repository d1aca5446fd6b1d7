package core

// QueueHealth is the downstream presentation service's pacing signal.
type QueueHealth struct {
	QueueSize int    `json:"queueSize"`
	GamePhase string `json:"gamePhase"`
}
