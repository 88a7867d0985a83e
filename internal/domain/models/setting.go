package models

import "encoding/json"

type SettingLabel string

const (
	IMSName                       SettingLabel = "IMS_NAME"
	IMSVersion                    SettingLabel = "IMS_VERSION"
	IMSTimezone                   SettingLabel = "IMS_TIMEZONE"
	IMSCurrency                   SettingLabel = "IMS_CURRENCY"
	IMSDefaultLanguage            SettingLabel = "IMS_DEFAULT_LANGUAGE"
	IMSMaxLoginAttempts           SettingLabel = "IMS_MAX_LOGIN_ATTEMPTS"
	IMSSessionTimeout             SettingLabel = "IMS_SESSION_TIMEOUT"
	IMSTelegramNotifications      SettingLabel = "IMS_TELEGRAM_NOTIFICATIONS_ENABLED"
	IMSDefaultPageSize            SettingLabel = "IMS_DEFAULT_PAGE_SIZE"
	IMSTaxRate                    SettingLabel = "IMS_TAX_RATE"
	IMSReturnPolicyDays           SettingLabel = "IMS_RETURN_POLICY_DAYS"
	IMSInventoryLowStockThreshold SettingLabel = "IMS_INVENTORY_LOW_STOCK_THRESHOLD"
	IMSMaintenanceMode            SettingLabel = "IMS_MAINTENANCE_MODE"
)

type SettingType int

const (
	SettingString SettingType = iota
	SettingNumber
	SettingBoolean
)

func (t SettingType) String() string {
	switch t {
	case SettingNumber:
		return "NUMBER"
	case SettingBoolean:
		return "BOOLEAN"
	default:
		return "STRING"
	}
}

// Setting is one row of the backend's /setting collection.
// Value is a string, float64 or bool once decoded.
type Setting struct {
	ID      int64        `json:"id"`
	Version int          `json:"version"`
	Label   SettingLabel `json:"label"`
	Value   any          `json:"value"`
}

// SettingUpdate is the body of PUT /setting/{label}.
type SettingUpdate struct {
	Value   json.RawMessage `json:"value"`
	Version int             `json:"version"`
	Label   SettingLabel    `json:"label"`
}
