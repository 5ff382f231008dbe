package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttachmentHandler 附件处理器，实体类型由路由注册时绑定
type AttachmentHandler struct {
	svc    *service.AttachmentService
	logger *zap.Logger
}

func NewAttachmentHandler(svc *service.AttachmentService, logger *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{svc: svc, logger: logger}
}

// Upload 上传附件
// POST /api/v1/{deliveries|returns|reworks}/:id/attachments
func (h *AttachmentHandler) Upload(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			BadRequest(c, "请上传文件")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		a, err := h.svc.Upload(c.Request.Context(), GetOperator(c), &service.UploadInput{
			EntityType:  entityType,
			EntityID:    c.Param("id"),
			FileName:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Body:        file,
		})
		if err != nil {
			h.logger.Warn("attachment upload failed",
				zap.String("entity_type", entityType), zap.String("entity_id", c.Param("id")), zap.Error(err))
			HandleError(c, "上传附件失败", err)
			return
		}
		Created(c, a)
	}
}

// List 附件列表
// GET /api/v1/{deliveries|returns|reworks}/:id/attachments
func (h *AttachmentHandler) List(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := h.svc.List(c.Request.Context(), entityType, c.Param("id"))
		if err != nil {
			HandleError(c, "获取附件失败", err)
			return
		}
		Success(c, gin.H{"items": items})
	}
}

// Delete 删除附件
// DELETE /api/v1/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, "删除附件失败", err)
		return
	}
	Success(c, nil)
}
