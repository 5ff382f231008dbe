package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockObjectStore 对象存储 mock
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) PresignedURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestAttachmentKey(t *testing.T) {
	key := AttachmentKey(entity.EntityDelivery, "d-1", `C:\photos\broken box.jpg`)
	assert.True(t, strings.HasPrefix(key, "delivery/d-1/"), key)
	assert.True(t, strings.HasSuffix(key, "_broken_box.jpg"), key)
	assert.NotContains(t, key, "photos")

	other := AttachmentKey(entity.EntityDelivery, "d-1", "broken box.jpg")
	assert.NotEqual(t, key, other)

	assert.True(t, strings.HasSuffix(AttachmentKey(entity.EntityReturn, "r-1", ""), "_file"))
}

func TestAttachmentUpload_StorageNotConfigured(t *testing.T) {
	svc := NewAttachmentService(nil, nil, nil)
	_, err := svc.Upload(context.Background(), Operator{ID: "u1"}, &UploadInput{
		EntityType: entity.EntityDelivery,
		EntityID:   "d-1",
		FileName:   "a.jpg",
		Size:       10,
		Body:       strings.NewReader("0123456789"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorageNotConfigured))
}

func seedDelivery(t *testing.T, repos *repository.Repositories) *entity.Delivery {
	t.Helper()
	d := &entity.Delivery{
		ID:        newID(),
		RefNo:     "DL-TEST-0001",
		POID:      newID(),
		Type:      entity.DeliveryTypeItemPurchase,
		Status:    entity.DeliveryStatusReceived,
		TotalCost: decimal.Zero,
	}
	require.NoError(t, repos.Delivery.Create(context.Background(), d))
	return d
}

func TestAttachmentService_UploadListDelete(t *testing.T) {
	repos, _ := newTestRepos(t)
	d := seedDelivery(t, repos)
	ctx := context.Background()

	store := new(MockObjectStore)
	keyForDelivery := mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "delivery/"+d.ID+"/") && strings.HasSuffix(key, "_dent.jpg")
	})
	store.On("Put", mock.Anything, keyForDelivery, mock.Anything, int64(4), "image/jpeg").Return(nil).Once()
	store.On("PresignedURL", mock.Anything, keyForDelivery).Return("https://files.local/dent.jpg", nil)
	store.On("Remove", mock.Anything, keyForDelivery).Return(errors.New("already gone")).Once()

	svc := NewAttachmentService(repos, store, nil)
	a, err := svc.Upload(ctx, Operator{ID: "u1"}, &UploadInput{
		EntityType:  entity.EntityDelivery,
		EntityID:    d.ID,
		FileName:    "dent.jpg",
		ContentType: "image/jpeg",
		Size:        4,
		Body:        strings.NewReader("jpeg"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://files.local/dent.jpg", a.URL)
	assert.Equal(t, "u1", a.UploadedBy)

	items, err := svc.List(ctx, entity.EntityDelivery, d.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ObjectKey, items[0].ObjectKey)
	assert.Equal(t, "https://files.local/dent.jpg", items[0].URL)

	// 对象删除失败只记录日志
	require.NoError(t, svc.Delete(ctx, a.ID))
	items, err = svc.List(ctx, entity.EntityDelivery, d.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	store.AssertExpectations(t)
}

func TestAttachmentService_UploadChecksEntityFirst(t *testing.T) {
	repos, _ := newTestRepos(t)
	store := new(MockObjectStore)
	svc := NewAttachmentService(repos, store, nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, Operator{ID: "u1"}, &UploadInput{
		EntityType: entity.EntityDelivery, EntityID: "missing", FileName: "a.jpg", Size: 1, Body: strings.NewReader("a"),
	})
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = svc.Upload(ctx, Operator{ID: "u1"}, &UploadInput{
		EntityType: entity.EntityRequisition, EntityID: "r-1", FileName: "a.jpg", Size: 1, Body: strings.NewReader("a"),
	})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = svc.Upload(ctx, Operator{ID: "u1"}, &UploadInput{
		EntityType: entity.EntityDelivery, EntityID: "missing", FileName: "a.jpg", Size: MaxAttachmentSize + 1,
	})
	assert.True(t, errors.Is(err, ErrValidation))

	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachmentService_PutFailureSavesNothing(t *testing.T) {
	repos, _ := newTestRepos(t)
	d := seedDelivery(t, repos)
	store := new(MockObjectStore)
	store.On("Put", mock.Anything, mock.AnythingOfType("string"), mock.Anything, int64(1), "").Return(errors.New("minio down"))

	svc := NewAttachmentService(repos, store, nil)
	_, err := svc.Upload(context.Background(), Operator{ID: "u1"}, &UploadInput{
		EntityType: entity.EntityDelivery, EntityID: d.ID, FileName: "a.jpg", Size: 1, Body: strings.NewReader("a"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio down")

	stored, err := repos.Attachment.FindByEntity(context.Background(), entity.EntityDelivery, d.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	store.AssertExpectations(t)
}
