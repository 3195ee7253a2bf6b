package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/orderbridge/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads and writes installed shop sessions.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository binds a GORM DB to session operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// FindByShop returns the usable session for shop. Offline sessions win over
// online ones; expired online sessions are skipped. Returns gorm.ErrRecordNotFound
// when no session qualifies.
func (r *Repository) FindByShop(ctx context.Context, shop string) (*models.ShopifySession, error) {
	var rows []models.ShopifySession
	if err := r.db.WithContext(ctx).
		Where("shop = ?", shop).
		Order("is_online ASC").
		Order("updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	now := r.now()
	for i := range rows {
		if rows[i].AccessToken == "" || rows[i].Expired(now) {
			continue
		}
		return &rows[i], nil
	}
	return nil, gorm.ErrRecordNotFound
}

// Save upserts a session row.
func (r *Repository) Save(ctx context.Context, session *models.ShopifySession) error {
	if session == nil {
		return errors.New("session is required")
	}
	if session.ID == "" || session.Shop == "" {
		return fmt.Errorf("session id and shop are required")
	}
	return r.db.WithContext(ctx).Save(session).Error
}

// DeleteByShop removes every session for shop, as on app uninstall.
func (r *Repository) DeleteByShop(ctx context.Context, shop string) error {
	return r.db.WithContext(ctx).Where("shop = ?", shop).Delete(&models.ShopifySession{}).Error
}
