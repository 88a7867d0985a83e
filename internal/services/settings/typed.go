package settings

import (
	"context"

	"github.com/FurmanovVitaliy/ims-dashboard/internal/domain/models"
	"github.com/FurmanovVitaliy/logger"
)

// String returns a STRING setting, or its default when settings cannot be read.
func (s *Store) String(ctx context.Context, label models.SettingLabel) string {
	v, _ := s.orDefault(ctx, label).(string)
	return v
}

func (s *Store) Number(ctx context.Context, label models.SettingLabel) float64 {
	v, _ := s.orDefault(ctx, label).(float64)
	return v
}

func (s *Store) Bool(ctx context.Context, label models.SettingLabel) bool {
	v, _ := s.orDefault(ctx, label).(bool)
	return v
}

func (s *Store) orDefault(ctx context.Context, label models.SettingLabel) any {
	v, err := s.Get(ctx, label)
	if err != nil {
		s.log.Warn("using default setting", logger.StringAttr("label", string(label)), logger.ErrAttr(err))
		return Coerce(label, definitions[label].def)
	}
	return v
}

func (s *Store) Language(ctx context.Context) string {
	return s.String(ctx, models.IMSDefaultLanguage)
}

func (s *Store) PageSize(ctx context.Context) int {
	n := int(s.Number(ctx, models.IMSDefaultPageSize))
	if n <= 0 {
		return int(definitions[models.IMSDefaultPageSize].def.(float64))
	}
	return n
}

func (s *Store) Maintenance(ctx context.Context) bool {
	return s.Bool(ctx, models.IMSMaintenanceMode)
}

func (s *Store) MaxLoginAttempts(ctx context.Context) int {
	return int(s.Number(ctx, models.IMSMaxLoginAttempts))
}

func (s *Store) AppName(ctx context.Context) string {
	return s.String(ctx, models.IMSName)
}
