package track

// NotificationKind classifies tracker-side events delivered outside any
// caller's call stack. Submission errors are returned synchronously from
// Submit and never appear here.
type NotificationKind string

const (
	// NotifyCompleted fires when a tracked job reaches succeeded.
	NotifyCompleted NotificationKind = "completed"
	// NotifyFailed fires when a tracked job reaches failed.
	NotifyFailed NotificationKind = "failed"
	// NotifyPollTimeout fires once when the polling ceiling is exceeded.
	// The job keeps its last known status; the tracker merely stops watching.
	NotifyPollTimeout NotificationKind = "poll_timeout"
	// NotifyPollDegraded fires when consecutive transport failures cross the
	// warning threshold. Polling continues with backoff.
	NotifyPollDegraded NotificationKind = "poll_degraded"
	// NotifyRefreshFailed fires when a tracker-initiated list refresh fails.
	NotifyRefreshFailed NotificationKind = "refresh_failed"
)

// Notification is one tracker-side event.
type Notification struct {
	Kind    NotificationKind
	JobID   string
	Message string
}

// Notifier receives tracker notifications. Implementations must not block;
// they are invoked from timer callbacks.
type Notifier func(Notification)
