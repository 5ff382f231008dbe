package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/shared/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 附件大小上限
const MaxAttachmentSize = 10 << 20

// AttachmentService 交货/退货/返工凭证附件
type AttachmentService struct {
	repos  *repository.Repositories
	store  storage.ObjectStore
	logger *zap.Logger
}

// NewAttachmentService store 为空表示未配置对象存储
func NewAttachmentService(repos *repository.Repositories, store storage.ObjectStore, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{repos: repos, store: store, logger: logger}
}

// UploadInput 上传参数
type UploadInput struct {
	EntityType  string
	EntityID    string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AttachmentKey 对象键 {entity}/{id}/{uuid}_{name}
func AttachmentKey(entityType, entityID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s/%s_%s", entityType, entityID, uuid.New().String(), name)
}

func (s *AttachmentService) checkEntity(ctx context.Context, entityType, entityID string) error {
	var err error
	switch entityType {
	case entity.EntityDelivery:
		_, err = s.repos.Delivery.FindByID(ctx, entityID)
	case entity.EntityReturn:
		_, err = s.repos.Return.FindByID(ctx, entityID)
	case entity.EntityRework:
		_, err = s.repos.Rework.FindByID(ctx, entityID)
	default:
		return fieldError("entity_type", "Attachments are not supported for "+entityType)
	}
	return err
}

// Upload 上传附件
func (s *AttachmentService) Upload(ctx context.Context, op Operator, in *UploadInput) (*entity.Attachment, error) {
	if s.store == nil {
		return nil, ErrStorageNotConfigured
	}
	if in.Size > MaxAttachmentSize {
		return nil, fieldError("file", "File is larger than 10MB")
	}
	if err := s.checkEntity(ctx, in.EntityType, in.EntityID); err != nil {
		return nil, err
	}

	key := AttachmentKey(in.EntityType, in.EntityID, in.FileName)
	if err := s.store.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("上传附件失败: %w", err)
	}

	a := &entity.Attachment{
		ID:          newID(),
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		ObjectKey:   key,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        in.Size,
		UploadedBy:  op.ID,
	}
	if err := s.repos.Attachment.Create(ctx, a); err != nil {
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("orphan attachment object", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("保存附件记录失败: %w", err)
	}
	s.sign(ctx, a)
	return a, nil
}

func (s *AttachmentService) sign(ctx context.Context, a *entity.Attachment) {
	u, err := s.store.PresignedURL(ctx, a.ObjectKey)
	if err != nil {
		s.logger.Warn("presign attachment failed", zap.String("key", a.ObjectKey), zap.Error(err))
		return
	}
	a.URL = u
}

// List 附件列表（含临时下载链接），未配置存储时为空
func (s *AttachmentService) List(ctx context.Context, entityType, entityID string) ([]entity.Attachment, error) {
	if s.store == nil {
		return []entity.Attachment{}, nil
	}
	if err := s.checkEntity(ctx, entityType, entityID); err != nil {
		return nil, err
	}
	items, err := s.repos.Attachment.FindByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.sign(ctx, &items[i])
	}
	return items, nil
}

// Delete 删除附件
func (s *AttachmentService) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrStorageNotConfigured
	}
	a, err := s.repos.Attachment.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Attachment.Delete(ctx, id); err != nil {
		return fmt.Errorf("删除附件失败: %w", err)
	}
	if err := s.store.Remove(ctx, a.ObjectKey); err != nil {
		s.logger.Warn("remove attachment object failed", zap.String("key", a.ObjectKey), zap.Error(err))
	}
	return nil
}
