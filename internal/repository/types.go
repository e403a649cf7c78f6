package repository

import (
	"errors"

	"gorm.io/gorm"

	"buildbuddy-admin/internal/pkg/database"
	pkgErrors "buildbuddy-admin/pkg/errors"
)

type QueryOption func(*gorm.DB) *gorm.DB

func WithPreload(association string, conds ...interface{}) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(association, conds...)
	}
}

func applyOptions(db *gorm.DB, opts []QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

// wrapDBError 把驱动错误归类为业务错误码
func wrapDBError(message string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgErrors.ErrRecordNotFound
	case database.IsAccessDenied(err):
		return pkgErrors.WithCause(pkgErrors.ErrAccessDenied, err)
	case database.IsUniqueViolation(err):
		return pkgErrors.Wrap(pkgErrors.CodeConflict, message+": 记录已存在", err)
	case database.IsForeignKeyViolation(err):
		return pkgErrors.WithCause(pkgErrors.ErrStaleReference, err)
	case database.IsTransient(err):
		return pkgErrors.Wrap(pkgErrors.CodeUnavailable, message+": 数据库暂时不可用", err)
	default:
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, message, err)
	}
}
