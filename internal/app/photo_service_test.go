package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"photoshelf/internal/model"
	"photoshelf/internal/storage"
	"photoshelf/internal/testutil"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n0000000000")
	jpegHeader = []byte("\xff\xd8\xff\xe0first")
	gifHeader  = []byte("GIF89asecond")
)

type fakePublisher struct {
	mu     sync.Mutex
	events []model.ImageEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event model.ImageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newPhotoService(t *testing.T, blobs BlobStore, publisher ImageEventPublisher) (*PhotoService, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewPhotoService(db, blobs, publisher, 5<<20), db
}

func quotaOf(t *testing.T, svc *PhotoService, userID uint) model.Quota {
	t.Helper()
	q, err := svc.Quota(context.Background(), userID)
	require.NoError(t, err)
	return q
}

func TestUploadThenDeleteRestoresQuota(t *testing.T) {
	publisher := &fakePublisher{}
	svc, db := newPhotoService(t, nil, publisher)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 5)

	image, err := svc.Upload(ctx, UploadInput{UserID: user.ID, Data: pngHeader})
	require.NoError(t, err)
	assert.Equal(t, "image/png", image.ContentType)
	assert.Equal(t, model.Quota{Uploaded: 1, Remaining: 4}, quotaOf(t, svc, user.ID))

	require.NoError(t, svc.Delete(ctx, user.ID, image.ID))
	assert.Equal(t, model.Quota{Uploaded: 0, Remaining: 5}, quotaOf(t, svc, user.ID))
	assert.Zero(t, testutil.CountImages(t, db, user.ID))

	assert.Equal(t, []string{model.ImageEventUploaded, model.ImageEventDeleted}, publisher.types())
}

func TestUploadUntilQuotaExhausted(t *testing.T) {
	svc, db := newPhotoService(t, nil, nil)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 3)

	for i := 0; i < 3; i++ {
		_, err := svc.Upload(ctx, UploadInput{UserID: user.ID, Data: pngHeader})
		require.NoError(t, err)
	}

	_, err := svc.Upload(ctx, UploadInput{UserID: user.ID, Data: pngHeader})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, model.Quota{Uploaded: 3, Remaining: 0}, quotaOf(t, svc, user.ID))
	assert.Equal(t, int64(3), testutil.CountImages(t, db, user.ID))
}

func TestUploadWithZeroQuotaStoresNothing(t *testing.T) {
	svc, db := newPhotoService(t, nil, nil)
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 0)

	_, err := svc.Upload(context.Background(), UploadInput{UserID: user.ID, Data: pngHeader})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Zero(t, testutil.CountImages(t, db, user.ID))
	assert.Equal(t, model.Quota{Uploaded: 0, Remaining: 0}, quotaOf(t, svc, user.ID))
}

func TestUploadValidatesPayload(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewPhotoService(db, nil, nil, 64)
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 5)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{UserID: user.ID})
	assert.ErrorIs(t, err, ErrNoFileProvided)

	_, err = svc.Upload(ctx, UploadInput{UserID: user.ID, Data: make([]byte, 65)})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = svc.Upload(ctx, UploadInput{UserID: user.ID, Data: make([]byte, 16)})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(ctx, UploadInput{UserID: user.ID, Data: []byte("<html><script>alert(1)</script></html>"), ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Upload(ctx, UploadInput{UserID: user.ID, Data: pngHeader})
	assert.NoError(t, err)

	assert.Equal(t, model.Quota{Uploaded: 1, Remaining: 4}, quotaOf(t, svc, user.ID))
}

func TestUploadUnknownUser(t *testing.T) {
	svc, _ := newPhotoService(t, nil, nil)

	_, err := svc.Upload(context.Background(), UploadInput{UserID: 42, Data: pngHeader})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestConcurrentUploadsTakeLastUnitOnce(t *testing.T) {
	svc, db := newPhotoService(t, nil, nil)
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 1)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Upload(context.Background(), UploadInput{UserID: user.ID, Data: pngHeader})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrQuotaExceeded):
				rejected++
			default:
				t.Errorf("unexpected upload error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, rejected)
	assert.Equal(t, model.Quota{Uploaded: 1, Remaining: 0}, quotaOf(t, svc, user.ID))
	assert.Equal(t, int64(1), testutil.CountImages(t, db, user.ID))
}

func TestDeleteOtherUsersImageIsNotFound(t *testing.T) {
	svc, db := newPhotoService(t, nil, nil)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com", "password1", 5)
	other := testutil.CreateUser(t, db, "other@example.com", "password1", 5)

	image, err := svc.Upload(ctx, UploadInput{UserID: owner.ID, Data: pngHeader})
	require.NoError(t, err)

	err = svc.Delete(ctx, other.ID, image.ID)
	assert.ErrorIs(t, err, ErrImageNotFound)
	assert.Equal(t, model.Quota{Uploaded: 1, Remaining: 4}, quotaOf(t, svc, owner.ID))
	assert.Equal(t, model.Quota{Uploaded: 0, Remaining: 5}, quotaOf(t, svc, other.ID))
	assert.Equal(t, int64(1), testutil.CountImages(t, db, owner.ID))

	assert.ErrorIs(t, svc.Delete(ctx, owner.ID, image.ID+100), ErrImageNotFound)
}

func TestListAndGetInlinePayloads(t *testing.T) {
	svc, db := newPhotoService(t, nil, nil)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 5)

	first, err := svc.Upload(ctx, UploadInput{UserID: user.ID, Data: jpegHeader, ContentType: "text/html; charset=utf-8"})
	require.NoError(t, err)
	second, err := svc.Upload(ctx, UploadInput{UserID: user.ID, Data: gifHeader, ContentType: strings.Repeat("x", 200)})
	require.NoError(t, err)
	assert.Equal(t, "image/gif", second.ContentType)

	views, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, jpegHeader, views[0].ImageData)

	image, err := svc.Get(ctx, user.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", image.ContentType)
	assert.Equal(t, jpegHeader, image.ImageData)

	_, err = svc.Get(ctx, user.ID+1, first.ID)
	assert.ErrorIs(t, err, ErrImageNotFound)
}

// raceOnRemove runs hook right before an object is removed, standing in for
// a concurrent request that lands between the delete commit and the removal.
type raceOnRemove struct {
	*storage.MemoryBlobStore
	hook func()
}

func (r *raceOnRemove) Remove(ctx context.Context, key string) error {
	if r.hook != nil {
		hook := r.hook
		r.hook = nil
		hook()
	}
	return r.MemoryBlobStore.Remove(ctx, key)
}

func TestBlobStoreBackendKeepsIdenticalUploadsApart(t *testing.T) {
	blobs := storage.NewMemoryBlobStore()
	svc, db := newPhotoService(t, blobs, nil)
	ctx := context.Background()
	ann := testutil.CreateUser(t, db, "ann@example.com", "password1", 5)
	bob := testutil.CreateUser(t, db, "bob@example.com", "password1", 5)

	annImage, err := svc.Upload(ctx, UploadInput{UserID: ann.ID, Data: pngHeader})
	require.NoError(t, err)
	bobImage, err := svc.Upload(ctx, UploadInput{UserID: bob.ID, Data: pngHeader})
	require.NoError(t, err)
	assert.NotEqual(t, annImage.ObjectKey, bobImage.ObjectKey)
	assert.Empty(t, annImage.ImageData)
	assert.Equal(t, 2, blobs.Len())

	views, err := svc.List(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, pngHeader, views[0].ImageData)

	require.NoError(t, svc.Delete(ctx, ann.ID, annImage.ID))
	assert.Equal(t, 1, blobs.Len())

	views, err = svc.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, pngHeader, views[0].ImageData)

	require.NoError(t, svc.Delete(ctx, bob.ID, bobImage.ID))
	assert.Equal(t, 0, blobs.Len())
}

func TestDeleteDoesNotRemoveObjectOfConcurrentIdenticalUpload(t *testing.T) {
	blobs := &raceOnRemove{MemoryBlobStore: storage.NewMemoryBlobStore()}
	svc, db := newPhotoService(t, blobs, nil)
	ctx := context.Background()
	ann := testutil.CreateUser(t, db, "ann@example.com", "password1", 5)
	bob := testutil.CreateUser(t, db, "bob@example.com", "password1", 5)

	annImage, err := svc.Upload(ctx, UploadInput{UserID: ann.ID, Data: pngHeader})
	require.NoError(t, err)

	blobs.hook = func() {
		_, err := svc.Upload(ctx, UploadInput{UserID: bob.ID, Data: pngHeader})
		require.NoError(t, err)
	}
	require.NoError(t, svc.Delete(ctx, ann.ID, annImage.ID))

	views, err := svc.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, pngHeader, views[0].ImageData)
	assert.Equal(t, 1, blobs.Len())
}

func TestFailedUploadRemovesItsObject(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_image_insert", func(tx *gorm.DB) {
		if tx.Statement.Table == "images" {
			_ = tx.AddError(errors.New("insert rejected"))
		}
	}))
	blobs := storage.NewMemoryBlobStore()
	svc := NewPhotoService(db, blobs, nil, 5<<20)
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 5)

	_, err := svc.Upload(context.Background(), UploadInput{UserID: user.ID, Data: pngHeader})
	require.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, 0, blobs.Len())
	assert.Equal(t, model.Quota{Uploaded: 0, Remaining: 5}, quotaOf(t, svc, user.ID))
}

func TestPublishFailureDoesNotFailUpload(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc, db := newPhotoService(t, nil, publisher)
	user := testutil.CreateUser(t, db, "a@example.com", "password1", 5)

	_, err := svc.Upload(context.Background(), UploadInput{UserID: user.ID, Data: pngHeader})
	require.NoError(t, err)
	assert.Len(t, publisher.types(), 1)
}

func TestActivityReadsAuditTable(t *testing.T) {
	svc, db := newPhotoService(t, nil, nil)
	require.NoError(t, db.Create(&model.ImageEvent{EventID: "e-1", Type: model.ImageEventUploaded, UserID: 3, ImageID: 1}).Error)

	events, err := svc.Activity(context.Background(), 3, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e-1", events[0].EventID)
}
