package events

// ClickRecorded is emitted for every redirect that reached the redirect
// branch, when the click pipeline runs over kafka.
type ClickRecorded struct {
	EventID    string `json:"eventId"`
	LinkID     string `json:"linkId"`
	IPAddress  string `json:"ipAddress,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	OccurredAt string `json:"occurredAt"`
}
