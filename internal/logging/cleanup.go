package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"gorm.io/gorm"
)

// PurgeOlderThan deletes system_logs rows whose timestamp is before
// now - retention.
func PurgeOlderThan(ctx context.Context, db *gorm.DB, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention)
	result := db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge system logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
