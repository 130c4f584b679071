package models

import (
	"time"

	"github.com/businesssadigital-oss/backendpay/pkg/types"
)

// Setting is the storefront's singleton configuration row.
type Setting struct {
	ID              int               `gorm:"column:id;primaryKey;default:1" json:"-"`
	SiteName        string            `gorm:"column:site_name" json:"siteName"`
	SiteDescription string            `gorm:"column:site_description" json:"siteDescription"`
	LogoURL         string            `gorm:"column:logo_url" json:"logoUrl"`
	FooterText      string            `gorm:"column:footer_text" json:"footerText"`
	SocialLinks     types.SocialLinks `gorm:"column:social_links;type:jsonb;serializer:json" json:"socialLinks"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}
