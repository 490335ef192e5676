package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"

	"photoshelf/internal/model"
	"photoshelf/internal/repository"
)

var (
	ErrNoFileProvided  = errors.New("no image uploaded")
	ErrPayloadTooLarge = errors.New("image exceeds the upload size limit")
	ErrQuotaExceeded   = errors.New("no remaining photo uploads")
	ErrImageNotFound   = errors.New("image not found")
	ErrUnsupportedType = errors.New("file is not a supported image")
	ErrStorage         = errors.New("storage failure")
)

// BlobStore keeps payloads outside the images table. When the service has no
// blob store, payloads are stored inline in the row.
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

type ImageEventPublisher interface {
	Publish(ctx context.Context, event model.ImageEvent) error
}

type PhotoService struct {
	db        *gorm.DB
	blobs     BlobStore
	publisher ImageEventPublisher
	maxBytes  int64
}

type UploadInput struct {
	UserID      uint
	Data        []byte
	ContentType string
}

// PhotoView is the listing shape returned to clients.
type PhotoView struct {
	ID        uint   `json:"id"`
	ImageData []byte `json:"image_data"`
}

func NewPhotoService(db *gorm.DB, blobs BlobStore, publisher ImageEventPublisher, maxBytes int64) *PhotoService {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &PhotoService{
		db:        db,
		blobs:     blobs,
		publisher: publisher,
		maxBytes:  maxBytes,
	}
}

func (s *PhotoService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload consumes one unit of quota and stores the image in a single
// transaction, so a failed insert never leaves the counters behind and two
// concurrent uploads cannot both take the last unit.
func (s *PhotoService) Upload(ctx context.Context, input UploadInput) (*model.Image, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	if len(input.Data) == 0 {
		return nil, ErrNoFileProvided
	}
	if int64(len(input.Data)) > s.maxBytes {
		return nil, ErrPayloadTooLarge
	}

	// the declared multipart type is never trusted
	contentType := http.DetectContentType(input.Data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrUnsupportedType
	}

	var (
		image     model.Image
		objectKey string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		ok, err := users.ConsumeQuota(ctx, input.UserID)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := users.GetQuota(ctx, input.UserID); errors.Is(err, repository.ErrUserNotFound) {
				return ErrUserNotFound
			} else if err != nil {
				return err
			}
			return ErrQuotaExceeded
		}

		image = model.Image{
			UserID:      input.UserID,
			Size:        int64(len(input.Data)),
			ContentType: contentType,
		}
		if s.blobs != nil {
			key, err := s.blobs.Put(ctx, input.Data, contentType)
			if err != nil {
				return err
			}
			objectKey = key
			image.ObjectKey = key
		} else {
			image.ImageData = input.Data
		}

		_, err = repository.NewImageRepository(tx).Create(ctx, &image)
		return err
	})
	if err != nil {
		if objectKey != "" {
			s.removeObject(ctx, objectKey)
		}
		if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: upload image: %v", ErrStorage, err)
	}

	s.publish(ctx, model.ImageEventUploaded, image.UserID, image.ID, image.Size)
	return &image, nil
}

// Delete removes an owned image and gives the quota unit back.
func (s *PhotoService) Delete(ctx context.Context, userID, imageID uint) error {
	if userID == 0 || imageID == 0 {
		return ErrImageNotFound
	}

	var removed model.Image
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		images := repository.NewImageRepository(tx)
		image, err := images.GetByIDAndUserID(ctx, imageID, userID)
		if err != nil {
			return err
		}
		if image == nil {
			return ErrImageNotFound
		}

		deleted, err := images.DeleteByIDAndUserID(ctx, imageID, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrImageNotFound
		}

		if err := repository.NewUserRepository(tx).AdjustQuota(ctx, userID, -1, 1); err != nil {
			return err
		}
		removed = *image
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return err
		}
		return fmt.Errorf("%w: delete image: %v", ErrStorage, err)
	}

	if removed.ObjectKey != "" && s.blobs != nil {
		s.removeObject(ctx, removed.ObjectKey)
	}
	s.publish(ctx, model.ImageEventDeleted, userID, removed.ID, removed.Size)
	return nil
}

func (s *PhotoService) List(ctx context.Context, userID uint) ([]PhotoView, error) {
	images, err := repository.NewImageRepository(s.db).ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	views := make([]PhotoView, 0, len(images))
	for i := range images {
		data, err := s.payload(ctx, &images[i])
		if err != nil {
			return nil, err
		}
		views = append(views, PhotoView{ID: images[i].ID, ImageData: data})
	}
	return views, nil
}

// Get returns one owned image with its payload resolved.
func (s *PhotoService) Get(ctx context.Context, userID, imageID uint) (*model.Image, error) {
	image, err := repository.NewImageRepository(s.db).GetByIDAndUserID(ctx, imageID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if image == nil {
		return nil, ErrImageNotFound
	}
	data, err := s.payload(ctx, image)
	if err != nil {
		return nil, err
	}
	image.ImageData = data
	return image, nil
}

func (s *PhotoService) Quota(ctx context.Context, userID uint) (model.Quota, error) {
	quota, err := repository.NewUserRepository(s.db).GetQuota(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.Quota{}, ErrUserNotFound
	}
	return quota, err
}

func (s *PhotoService) Activity(ctx context.Context, userID uint, limit int) ([]model.ImageEvent, error) {
	return repository.NewImageEventRepository(s.db).ListByUserID(ctx, userID, limit)
}

func (s *PhotoService) payload(ctx context.Context, image *model.Image) ([]byte, error) {
	if image.ObjectKey == "" {
		return image.ImageData, nil
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("%w: image %d is in object storage but none is configured", ErrStorage, image.ID)
	}
	data, err := s.blobs.Get(ctx, image.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return data, nil
}

// removeObject deletes an object whose row is gone or was never committed.
// Keys are unique per upload, so no other row can reference it.
func (s *PhotoService) removeObject(ctx context.Context, key string) {
	if err := s.blobs.Remove(ctx, key); err != nil {
		slog.Warn("remove object failed", "object_key", key, "error", err)
	}
}

func (s *PhotoService) publish(ctx context.Context, eventType string, userID, imageID uint, size int64) {
	if s.publisher == nil {
		return
	}
	event := model.ImageEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		ImageID:    imageID,
		Size:       size,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("publish image event failed", "type", eventType, "user_id", userID, "image_id", imageID, "error", err)
	}
}
