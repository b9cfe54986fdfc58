package models

// Setting is a key/value row for runtime-adjustable policy,
// currently only the free-tier message limit override.
type Setting struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:256"`
}

// Known setting keys.
const (
	SettingFreeLimit = "free_message_limit"
)

// TableName overrides the gorm default.
func (Setting) TableName() string {
	return "settings"
}
