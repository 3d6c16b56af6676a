package domain

// InstallOutcome is the user's decision on the native install prompt.
type InstallOutcome string

const (
	OutcomeAccepted  InstallOutcome = "accepted"
	OutcomeDismissed InstallOutcome = "dismissed"
)

// NotificationPermission is the tri-state result of a permission request.
type NotificationPermission string

const (
	PermissionGranted NotificationPermission = "granted"
	PermissionDenied  NotificationPermission = "denied"
	PermissionDefault NotificationPermission = "default"
)

// StorageEstimate is a read-only snapshot of persistent storage usage.
type StorageEstimate struct {
	Usage       uint64  `json:"usage"`
	Quota       uint64  `json:"quota"`
	PercentUsed float64 `json:"percent_used"`
}

// NetworkStatus is a snapshot of connectivity plus best-effort quality hints.
// Hint fields are empty/zero when the platform does not expose them.
type NetworkStatus struct {
	Online        bool    `json:"online"`
	EffectiveType string  `json:"effective_type,omitempty"` // "4g", "3g", ...
	DownlinkMbps  float64 `json:"downlink_mbps,omitempty"`
	RTTMillis     int     `json:"rtt_ms,omitempty"`
}

// SharePayload is content handed to the native share sheet.
type SharePayload struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
	URL   string `json:"url,omitempty"`
}

// PushSubscription is the result of a successful push registration.
type PushSubscription struct {
	Endpoint string            `json:"endpoint"`
	Keys     map[string]string `json:"keys,omitempty"`
}
