package settings

import (
	"math"
	"strconv"
	"strings"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
)

type definition struct {
	typ models.SettingType
	def any
}

var definitions = map[models.SettingLabel]definition{
	models.IMSName:                       {models.SettingString, "Inventory Management System"},
	models.IMSVersion:                    {models.SettingString, "1.0.0"},
	models.IMSTimezone:                   {models.SettingString, "UTC"},
	models.IMSCurrency:                   {models.SettingString, "USD"},
	models.IMSDefaultLanguage:            {models.SettingString, "en"},
	models.IMSMaxLoginAttempts:           {models.SettingNumber, float64(5)},
	models.IMSSessionTimeout:             {models.SettingNumber, float64(30)},
	models.IMSTelegramNotifications:      {models.SettingBoolean, false},
	models.IMSDefaultPageSize:            {models.SettingNumber, float64(20)},
	models.IMSTaxRate:                    {models.SettingNumber, 0.1},
	models.IMSReturnPolicyDays:           {models.SettingNumber, float64(30)},
	models.IMSInventoryLowStockThreshold: {models.SettingNumber, float64(10)},
	models.IMSMaintenanceMode:            {models.SettingBoolean, false},
}

// Labels lists every known label in display order.
var Labels = []models.SettingLabel{
	models.IMSName,
	models.IMSVersion,
	models.IMSTimezone,
	models.IMSCurrency,
	models.IMSDefaultLanguage,
	models.IMSMaxLoginAttempts,
	models.IMSSessionTimeout,
	models.IMSTelegramNotifications,
	models.IMSDefaultPageSize,
	models.IMSTaxRate,
	models.IMSReturnPolicyDays,
	models.IMSInventoryLowStockThreshold,
	models.IMSMaintenanceMode,
}

func Known(label models.SettingLabel) bool {
	_, ok := definitions[label]
	return ok
}

func TypeOf(label models.SettingLabel) models.SettingType {
	return definitions[label].typ
}

// Defaults returns a fresh copy of the hardcoded values.
func Defaults() map[models.SettingLabel]any {
	out := make(map[models.SettingLabel]any, len(definitions))
	for l, d := range definitions {
		out[l] = d.def
	}
	return out
}

// Coerce converts a wire value to the label's type. NUMBER falls back to the
// default on anything unparsable, NaN and ±Inf included. BOOLEAN accepts a
// case-insensitive "true".
func Coerce(label models.SettingLabel, value any) any {
	d, ok := definitions[label]
	if !ok {
		return value
	}
	if value == nil {
		return d.def
	}

	switch d.typ {
	case models.SettingNumber:
		switch v := value.(type) {
		case float64:
			if !finite(v) {
				return d.def
			}
			return v
		case int:
			return float64(v)
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || !finite(n) {
				return d.def
			}
			return n
		case bool:
			if v {
				return float64(1)
			}
			return float64(0)
		}
	case models.SettingBoolean:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			return strings.EqualFold(v, "true")
		case float64:
			return v != 0
		case int:
			return v != 0
		}
	case models.SettingString:
		switch v := value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return d.def
}

func finite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

// ParseNumber reads a NUMBER setting typed by a person. It reports false for
// anything Coerce would replace with the default.
func ParseNumber(raw string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(n) {
		return 0, false
	}
	return n, true
}
