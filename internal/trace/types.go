package trace

// Run is one app instance recorded in the journal.
type Run struct {
	ID     string   `json:"id"`
	Labels []string `json:"labels"`
}

// Tick is the summary row for one completed Update.
type Tick struct {
	RunID  string `json:"run_id"`
	Tick   int64  `json:"tick"`
	Units  int    `json:"units"`
	Events int    `json:"events"`
}

// Delivery is one value handed to one handler.
type Delivery struct {
	RunID     string `json:"run_id"`
	Seq       int64  `json:"seq"`
	Tick      int64  `json:"tick"`
	Label     string `json:"label"`
	EventType string `json:"event_type"`
	Handler   string `json:"handler"`
	Payload   string `json:"payload"`
}
