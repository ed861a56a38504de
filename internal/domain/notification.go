package domain

// PendingNotification is a transient delivery-queue item. It lives only
// in process memory and is owned by the delivery queue for its lifetime.
type PendingNotification struct {
	Destination string // chat id or channel the message goes to
	Body        string
	RetryCount  int // attempts already failed, 0..max
}

// CallLogEntry records one upstream call for observability.
// Corresponds to upstream_call_log; never read by the core logic.
type CallLogEntry struct {
	Endpoint  string
	Status    int // HTTP status, 0 when the request never completed
	LatencyMs int64
	ErrorText string
	CalledAt  int64 // Unix timestamp in milliseconds
}
