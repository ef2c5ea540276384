package config

// Tool defines the available tools of the oversight server
const (
	// ToolDashboard is the lead dashboard tool name
	ToolDashboard = "dashboard.view"
	// ToolClassify is the worker classification tool name
	ToolClassify = "worker.classify"
	// ToolSelect is the claim-and-open-session tool name
	ToolSelect = "session.select"
	// ToolCancel is the unselect tool name
	ToolCancel = "session.cancel"
	// ToolLocation is the GPS sample tool name
	ToolLocation = "session.location"
	// ToolAdvance is the workflow step tool name
	ToolAdvance = "session.advance"
	// ToolEvaluate is the room evaluation tool name
	ToolEvaluate = "session.evaluate"
	// ToolWrapUp is the wrap-up tool name
	ToolWrapUp = "session.wrap_up"
	// ToolSubmit is the check-in submission tool name
	ToolSubmit = "session.submit"
	// ToolGetSession is the session lookup tool name
	ToolGetSession = "session.get"
	// ToolListSessions is the session listing tool name
	ToolListSessions = "session.list"
	// ToolAssistStart is the assistance start tool name
	ToolAssistStart = "assistance.start"
	// ToolAssistEnd is the assistance end tool name
	ToolAssistEnd = "assistance.end"
	// ToolLaundryPickup is the laundry pickup tool name
	ToolLaundryPickup = "laundry.pickup"
	// ToolLaundryWash is the wash start tool name
	ToolLaundryWash = "laundry.start_wash"
	// ToolLaundryEndShift is the end-of-shift tool name
	ToolLaundryEndShift = "laundry.end_shift"
)

// AllTools returns a slice of all available tool names
func AllTools() []string {
	return []string{
		ToolDashboard,
		ToolClassify,
		ToolSelect,
		ToolCancel,
		ToolLocation,
		ToolAdvance,
		ToolEvaluate,
		ToolWrapUp,
		ToolSubmit,
		ToolGetSession,
		ToolListSessions,
		ToolAssistStart,
		ToolAssistEnd,
		ToolLaundryPickup,
		ToolLaundryWash,
		ToolLaundryEndShift,
	}
}
