package sync

// TriggerReason identifies what started a drain cycle. Any hosting
// environment (CLI, daemon, mobile shell) can push these onto the engine
// without the engine depending on a specific event-loop API.
type TriggerReason string

const (
	// TriggerOnline fires on the offline → online transition.
	TriggerOnline TriggerReason = "online"

	// TriggerTimer fires on the fixed sync interval, gated on being online.
	TriggerTimer TriggerReason = "timer"

	// TriggerManual is an explicit "sync now" request.
	TriggerManual TriggerReason = "manual"

	// TriggerStartup fires once, a short delay after startup, to let
	// authentication settle.
	TriggerStartup TriggerReason = "startup"
)
