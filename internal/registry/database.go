// internal/registry/database.go
package registry

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/imi-licensing/internal/licensing"
	"github.com/javajoker/imi-licensing/internal/models"
)

// Database answers registry questions from the catalogue tables. Lookup
// failures are logged and answered with false, so a broken catalogue makes
// the contract reject rather than accept.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatabase(db *gorm.DB, logger *logrus.Logger) *Database {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Database{db: db, logger: logger}
}

func (r *Database) IsContentValid(contentID uint64) bool {
	var item models.ContentItem
	err := r.db.Select("id", "status").
		Where("id = ? AND status = ?", contentID, models.ContentStatusActive).
		First(&item).Error
	return r.found("content", contentID, err)
}

func (r *Database) IsTemplateValid(templateID uint64) bool {
	var template models.LicenseTemplate
	err := r.db.Select("id", "is_active").
		Where("id = ? AND is_active = ?", templateID, true).
		First(&template).Error
	return r.found("template", templateID, err)
}

func (r *Database) IsCreatorRegistered(creator licensing.Principal) bool {
	var c models.Creator
	err := r.db.Select("principal", "status").
		Where("principal = ? AND status = ?", string(creator), models.CreatorStatusActive).
		First(&c).Error
	return r.found("creator", creator, err)
}

func (r *Database) found(kind string, key interface{}, err error) bool {
	if err == nil {
		return true
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.WithFields(logrus.Fields{
			"lookup": kind,
			"key":    key,
			"error":  err.Error(),
		}).Error("Registry lookup failed")
	}
	return false
}

var _ licensing.Registry = (*Database)(nil)
