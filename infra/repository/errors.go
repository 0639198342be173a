package repository

import (
	"errors"

	"github.com/Komversa/moneyapp/pkg/domain"
	"gorm.io/gorm"
)

// mapGormError converts GORM errors to domain errors so callers never see
// persistence types. Unknown errors pass through unchanged.
func mapGormError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrConflict
	}
	return err
}
