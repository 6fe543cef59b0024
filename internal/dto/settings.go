package dto

// Settings mirrors GET /api/settings.
type Settings struct {
	Security      SecuritySettings     `json:"security"`
	Notifications NotificationSettings `json:"notifications"`
}

type SecuritySettings struct {
	TwoFactorAuth  bool `json:"two_factor_auth"`
	SessionTimeout int  `json:"session_timeout"` // minutes
}

type NotificationSettings struct {
	SystemNotifications bool `json:"system_notifications"`
	EmailAlerts         bool `json:"email_alerts"`
}

// SettingsUpdate carries a partial settings change; nil fields stay untouched.
type SettingsUpdate struct {
	TwoFactorAuth       *bool `json:"two_factor_auth,omitempty"`
	SessionTimeout      *int  `json:"session_timeout,omitempty"`
	SystemNotifications *bool `json:"system_notifications,omitempty"`
	EmailAlerts         *bool `json:"email_alerts,omitempty"`
}

// CacheStats mirrors GET /api/maintenance/cache-stats.
type CacheStats struct {
	Entries   int    `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
	LastFlush string `json:"last_flush,omitempty"`
}
