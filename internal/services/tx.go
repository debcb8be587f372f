package services

import (
	"context"

	"gorm.io/gorm"
)

// runInTx executes fc inside a gorm transaction. A nil db runs fc with a
// nil tx, the same convention the repos apply.
func runInTx(ctx context.Context, db *gorm.DB, fc func(tx *gorm.DB) error) error {
	if db == nil {
		return fc(nil)
	}
	return db.WithContext(ctx).Transaction(fc)
}
