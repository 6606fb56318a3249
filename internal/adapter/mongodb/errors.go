package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/heartmarshall/mflix-backend/internal/domain"
)

// MapError converts driver errors to domain errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped; they pass through.
func MapError(err error, entity, key string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
	}

	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrDuplicateEntity)
	}

	return fmt.Errorf("%s %s: %w", entity, key, err)
}

// Fail wraps err in the failure kind a store method reports, unless err is
// already a duplicate which callers branch on directly.
func Fail(kind error, err error) error {
	if errors.Is(err, domain.ErrDuplicateEntity) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
