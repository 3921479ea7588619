// Package docstore persists keyed JSON documents grouped into collections.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "docstore.service.new"
	opList       = "docstore.list"
	opGet        = "docstore.get"
	opCreate     = "docstore.create"
	opReplace    = "docstore.replace"
	opDelete     = "docstore.delete"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type IDProvider interface {
	NewID() (string, error)
}

type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns the documents of a collection ordered by identifier.
func (s *Service) List(ctx context.Context, collection CollectionName, filter Filter) ([]Document, error) {
	if s.db == nil {
		s.logError(opList, "missing_database", errMissingDatabase)
		return nil, newServiceError(opList, "missing_database", errMissingDatabase)
	}

	var stored []Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection.String()).
		Order("document_id ASC").
		Find(&stored).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("collection", collection.String()))
		return nil, newServiceError(opList, "query_failed", err)
	}

	if filter.IsZero() {
		return stored, nil
	}
	matched := make([]Document, 0, len(stored))
	for _, document := range stored {
		if filter.Matches(document.PayloadJSON) {
			matched = append(matched, document)
		}
	}
	return matched, nil
}

// Get returns a single document or ErrDocumentNotFound.
func (s *Service) Get(ctx context.Context, collection CollectionName, id DocumentID) (Document, error) {
	if s.db == nil {
		s.logError(opGet, "missing_database", errMissingDatabase)
		return Document{}, newServiceError(opGet, "missing_database", errMissingDatabase)
	}

	var stored Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND document_id = ?", collection.String(), id.String()).
		Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, newServiceError(opGet, "not_found", ErrDocumentNotFound)
	}
	if err != nil {
		s.logError(opGet, "query_failed", err,
			zap.String("collection", collection.String()),
			zap.String("document_id", id.String()))
		return Document{}, newServiceError(opGet, "query_failed", err)
	}
	return stored, nil
}

// Create stores payload under a freshly issued identifier.
func (s *Service) Create(ctx context.Context, collection CollectionName, payload Payload) (Document, error) {
	if s.db == nil {
		s.logError(opCreate, "missing_database", errMissingDatabase)
		return Document{}, newServiceError(opCreate, "missing_database", errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(opCreate, "missing_id_provider", errMissingIDProvider)
		return Document{}, newServiceError(opCreate, "missing_id_provider", errMissingIDProvider)
	}

	documentID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err, zap.String("collection", collection.String()))
		return Document{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	now := s.clock().UTC().Unix()
	document := Document{
		Collection:       collection.String(),
		DocumentID:       documentID,
		PayloadJSON:      payload.String(),
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}
	if err := s.db.WithContext(ctx).Create(&document).Error; err != nil {
		s.logError(opCreate, "insert_failed", err,
			zap.String("collection", collection.String()),
			zap.String("document_id", documentID))
		return Document{}, newServiceError(opCreate, "insert_failed", err)
	}

	s.logger.Debug("document created",
		zap.String("collection", collection.String()),
		zap.String("document_id", documentID))
	return document, nil
}

// Replace overwrites the document stored under id, creating it when absent.
func (s *Service) Replace(ctx context.Context, collection CollectionName, id DocumentID, payload Payload) (Document, error) {
	if s.db == nil {
		s.logError(opReplace, "missing_database", errMissingDatabase)
		return Document{}, newServiceError(opReplace, "missing_database", errMissingDatabase)
	}

	var result Document
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock().UTC().Unix()
		var existing Document
		err := tx.Where("collection = ? AND document_id = ?", collection.String(), id.String()).
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = Document{
				Collection:       collection.String(),
				DocumentID:       id.String(),
				CreatedAtSeconds: now,
			}
		case err != nil:
			s.logError(opReplace, "select_failed", err,
				zap.String("collection", collection.String()),
				zap.String("document_id", id.String()))
			return newServiceError(opReplace, "select_failed", err)
		}

		existing.PayloadJSON = payload.String()
		existing.UpdatedAtSeconds = now
		if err := tx.Save(&existing).Error; err != nil {
			s.logError(opReplace, "save_failed", err,
				zap.String("collection", collection.String()),
				zap.String("document_id", id.String()))
			return newServiceError(opReplace, "save_failed", err)
		}
		result = existing
		return nil
	})
	if txErr != nil {
		return Document{}, txErr
	}
	return result, nil
}

// Delete removes the document stored under id. Deleting an absent document succeeds.
func (s *Service) Delete(ctx context.Context, collection CollectionName, id DocumentID) error {
	if s.db == nil {
		s.logError(opDelete, "missing_database", errMissingDatabase)
		return newServiceError(opDelete, "missing_database", errMissingDatabase)
	}

	if err := s.db.WithContext(ctx).
		Where("collection = ? AND document_id = ?", collection.String(), id.String()).
		Delete(&Document{}).Error; err != nil {
		s.logError(opDelete, "delete_failed", err,
			zap.String("collection", collection.String()),
			zap.String("document_id", id.String()))
		return newServiceError(opDelete, "delete_failed", err)
	}
	return nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("docstore service error", attrs...)
}
