// internal/models/registry.go
package models

import (
	"github.com/lib/pq"
)

// Rows backing the database registry. They are owned by the catalogue side
// of the platform; the contract only reads them.

type ContentItem struct {
	ID          uint64         `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Title       string         `json:"title" gorm:"size:255;not null"`
	Owner       string         `json:"owner" gorm:"size:128;not null;index"`
	ContentType string         `json:"content_type" gorm:"size:50"`
	Tags        pq.StringArray `json:"tags" gorm:"type:text[]"`
	Status      ContentStatus  `json:"status" gorm:"type:varchar(20);default:'active';index"`
}

type LicenseTemplate struct {
	ID           uint64 `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name         string `json:"name" gorm:"size:255;not null"`
	Territory    string `json:"territory" gorm:"size:100;default:'global'"`
	Requirements string `json:"requirements" gorm:"type:text"`
	Restrictions string `json:"restrictions" gorm:"type:text"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
}

type Creator struct {
	Principal   string        `json:"principal" gorm:"primaryKey;size:128"`
	DisplayName string        `json:"display_name" gorm:"size:255"`
	Status      CreatorStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	ProfileData JSONB         `json:"profile_data" gorm:"type:jsonb"`
}
