package models

import "time"

// ShopifySession is an installed shop's Admin API credential as written by the
// embedded app's session storage.
type ShopifySession struct {
	ID          string     `gorm:"column:id;primaryKey"`
	Shop        string     `gorm:"column:shop;not null;index"`
	State       string     `gorm:"column:state"`
	IsOnline    bool       `gorm:"column:is_online;not null;default:false"`
	Scope       string     `gorm:"column:scope"`
	AccessToken string     `gorm:"column:access_token;not null"`
	ExpiresAt   *time.Time `gorm:"column:expires_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ShopifySession) TableName() string { return "shopify_sessions" }

// Expired reports whether an online session is past its expiry at now.
func (s ShopifySession) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}
