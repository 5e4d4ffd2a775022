package services

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ImageDeleter deletes a stored image after checking it belongs to scope
type ImageDeleter interface {
	Delete(ctx context.Context, scope ImageScope, path string) error
}

// ReplaceImageParams describes a record update that may swap its image
type ReplaceImageParams[T any] struct {
	Scope        ImageScope
	PreviousPath *string
	NextPath     *string

	// ApplyRecordUpdate writes the new field values and returns the updated record
	ApplyRecordUpdate func(ctx context.Context) (T, error)

	// RollbackRecordUpdate restores the field values that were overwritten
	RollbackRecordUpdate func(ctx context.Context) error

	// CleanupNewPathOnRollback deletes NextPath once a rollback has succeeded
	CleanupNewPathOnRollback bool
}

// ReplaceImageResult is the updated record and whether the old image was removed
type ReplaceImageResult[T any] struct {
	Record        T
	ReplacedImage bool
}

// ReplaceImage applies a record update and then deletes the image it replaced.
//
// The database write happens first; the previous image is only deleted once the new
// state is stored. If that delete fails the record update is rolled back and, when
// requested, the new image is removed so nothing is orphaned. A failed rollback is the
// one case that can leave the record pointing at a deleted image; it is logged with
// both errors for follow-up. Either way the caller gets ErrReplacementFailed.
func ReplaceImage[T any](ctx context.Context, images ImageDeleter, logger *zap.Logger, params ReplaceImageParams[T]) (*ReplaceImageResult[T], error) {
	record, err := params.ApplyRecordUpdate(ctx)
	if err != nil {
		return nil, err
	}

	if !hasReplacedImage(params.PreviousPath, params.NextPath) {
		return &ReplaceImageResult[T]{Record: record, ReplacedImage: false}, nil
	}

	previousPath, nextPath := *params.PreviousPath, *params.NextPath
	fields := []zap.Field{
		zap.String("scope", string(params.Scope)),
		zap.String("previous_path", previousPath),
		zap.String("next_path", nextPath),
	}

	deleteErr := images.Delete(ctx, params.Scope, previousPath)
	if deleteErr == nil {
		return &ReplaceImageResult[T]{Record: record, ReplacedImage: true}, nil
	}

	logger.Warn("Failed to delete previous image, rolling back record update",
		append(fields, zap.Error(deleteErr))...)

	if rollbackErr := params.RollbackRecordUpdate(ctx); rollbackErr != nil {
		logger.Error("Image replacement rollback failed, record and storage may be inconsistent",
			append(fields,
				zap.NamedError("delete_error", deleteErr),
				zap.NamedError("rollback_error", rollbackErr),
			)...)
		return nil, replacementFailed(errors.Join(deleteErr, rollbackErr))
	}

	if params.CleanupNewPathOnRollback && nextPath != previousPath {
		if cleanupErr := images.Delete(ctx, params.Scope, nextPath); cleanupErr != nil {
			logger.Warn("Failed to clean up new image after rollback",
				append(fields, zap.Error(cleanupErr))...)
		}
	}

	return nil, replacementFailed(deleteErr)
}

func hasReplacedImage(previousPath, nextPath *string) bool {
	if previousPath == nil || nextPath == nil {
		return false
	}
	if *previousPath == "" || *nextPath == "" {
		return false
	}
	return *previousPath != *nextPath
}
