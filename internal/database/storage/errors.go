package storage

import (
	"errors"
	"fmt"

	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// pq не переводится транслятором GORM, поэтому код нарушения уникальности проверяем сами
const pqUniqueViolation = "23505"

// IsUniqueViolation сообщает, что запись нарушила уникальный индекс
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// classify помечает нарушение уникальности как ports.ErrDuplicate
func classify(err error) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ports.ErrDuplicate, err)
	}
	return err
}
