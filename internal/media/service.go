// Package media accepts dish photos, screens them with the image classifier
// and stores them in the public bucket.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/internal/menu"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/moderation"
	"github.com/angelmondragon/cookerz-backend/pkg/storage/gcs"
)

type menuImages interface {
	Get(ctx context.Context, id uuid.UUID) (*menu.MenuItemDTO, error)
	SetImage(ctx context.Context, cookerID, itemID uuid.UUID, imageURL string) (*menu.MenuItemDTO, error)
}

// Service exposes dish photo uploads.
type Service interface {
	UploadMenuImage(ctx context.Context, cookerID, itemID uuid.UUID, body io.Reader) (*menu.MenuItemDTO, error)
}

type ServiceParams struct {
	Menu       menuImages
	Store      gcs.ObjectStore
	Classifier moderation.ImageClassifier
	MaxBytes   int64
	Logger     *logger.Logger
}

type service struct {
	menu       menuImages
	store      gcs.ObjectStore
	classifier moderation.ImageClassifier
	maxBytes   int64
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Menu == nil {
		return nil, errors.New("menu service required")
	}
	if params.Store == nil {
		return nil, errors.New("object store required")
	}
	if params.Classifier == nil {
		return nil, errors.New("image classifier required")
	}
	if params.MaxBytes <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		menu:       params.Menu,
		store:      params.Store,
		classifier: params.Classifier,
		maxBytes:   params.MaxBytes,
		logg:       params.Logger,
	}, nil
}

func (s *service) UploadMenuImage(ctx context.Context, cookerID, itemID uuid.UUID, body io.Reader) (*menu.MenuItemDTO, error) {
	if cookerID == uuid.Nil {
		return nil, pkgerrors.NotAuthenticated()
	}
	item, err := s.menu.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.CookerID != cookerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "menu item belongs to another cooker")
	}

	data, err := s.read(body)
	if err != nil {
		return nil, err
	}
	contentType, ext, err := sniffImage(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
			WithDetails(map[string]any{"field": "file"})
	}

	verdict, err := s.classifier.ClassifyImage(ctx, contentType, data)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"menu_item_id": itemID.String(),
			"error":        err.Error(),
		}), "media.classify_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, moderation.MessageVerifyFailed)
	}
	if !verdict.Acceptable() {
		return nil, pkgerrors.New(pkgerrors.CodeContentRejected, "image must show food and be safe for work").
			WithDetails(verdict)
	}

	object := fmt.Sprintf("menu-items/%s/%s/%s%s", cookerID, itemID, uuid.NewString(), ext)
	stored, err := s.store.Upload(ctx, object, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}
	name := object
	if stored != nil && stored.Name != "" {
		name = stored.Name
	}

	updated, err := s.menu.SetImage(ctx, cookerID, itemID, s.store.PublicURL(name))
	if err != nil {
		if delErr := s.store.Delete(ctx, name); delErr != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"object": name,
				"error":  delErr.Error(),
			}), "media.orphan_cleanup_failed")
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"menu_item_id": itemID.String(),
		"object":       name,
		"content_type": contentType,
		"bytes":        len(data),
	}), "media.menu_image_uploaded")
	return updated, nil
}

func (s *service) read(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is too large").
			WithDetails(map[string]any{"max_bytes": s.maxBytes})
	}
	return data, nil
}
