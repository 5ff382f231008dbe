package handler

import (
	"net/http"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/middleware"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册业务路由
func RegisterRoutes(r *gin.Engine, h *Handlers, jwtSecret string) {
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	auth := middleware.JWTAuth(jwtSecret)
	catalogManage := middleware.RequirePermission(entity.PermCatalogManage)
	poManage := middleware.RequirePermission(entity.PermPurchaseOrderManage)
	receive := middleware.RequirePermission(entity.PermDeliveryReceive)
	userManage := middleware.RequirePermission(entity.PermUserManage)

	// 旧版前端使用的查询接口
	r.GET("/requisition/api/items/:categoryId", auth, h.Catalog.CategoryItems)
	r.GET("/api/reworks/delivery/:id/services", auth, h.Claim.DeliveryServices)

	v1 := r.Group("/api/v1")
	{
		// 认证（无需登录）
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.Refresh)
		}

		authorized := v1.Group("")
		authorized.Use(auth)
		{
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			authorized.GET("/dashboard/summary", h.Dashboard.Summary)

			// 用户与角色
			users := authorized.Group("/users", userManage)
			{
				users.GET("", h.User.List)
				users.POST("", h.User.Create)
				users.GET("/:id", h.User.Get)
				users.PUT("/:id", h.User.Update)
				users.DELETE("/:id", h.User.Delete)
				users.GET("/:id/permissions", h.User.Permissions)
				users.POST("/:id/permissions", h.User.GrantPermissions)
				users.DELETE("/:id/permissions", h.User.RevokePermissions)
			}
			roles := authorized.Group("/roles", userManage)
			{
				roles.GET("", h.User.ListRoles)
				roles.POST("", h.User.CreateRole)
				roles.GET("/:id", h.User.GetRole)
				roles.PUT("/:id", h.User.UpdateRole)
				roles.DELETE("/:id", h.User.DeleteRole)
			}
			authorized.GET("/permissions", userManage, h.User.ListPermissions)

			// 目录：读取对所有登录用户开放
			categories := authorized.Group("/categories")
			{
				categories.GET("", h.Catalog.ListCategories)
				categories.GET("/:id", h.Catalog.GetCategory)
				categories.POST("", catalogManage, h.Catalog.CreateCategory)
				categories.PUT("/:id", catalogManage, h.Catalog.UpdateCategory)
				categories.DELETE("/:id", catalogManage, h.Catalog.DeleteCategory)
			}
			makes := authorized.Group("/makes")
			{
				makes.GET("", h.Catalog.ListMakes)
				makes.POST("", catalogManage, h.Catalog.CreateMake)
				makes.PUT("/:id", catalogManage, h.Catalog.UpdateMake)
				makes.DELETE("/:id", catalogManage, h.Catalog.DeleteMake)
			}
			items := authorized.Group("/items")
			{
				items.GET("", h.Catalog.ListItems)
				items.GET("/:id", h.Catalog.GetItem)
				items.POST("", catalogManage, h.Catalog.CreateItem)
				items.POST("/import", catalogManage, h.Catalog.ImportItems)
				items.PUT("/:id", catalogManage, h.Catalog.UpdateItem)
				items.DELETE("/:id", catalogManage, h.Catalog.DeleteItem)
			}
			services := authorized.Group("/services")
			{
				services.GET("", h.Catalog.ListServices)
				services.GET("/:id", h.Catalog.GetService)
				services.POST("", catalogManage, h.Catalog.CreateService)
				services.PUT("/:id", catalogManage, h.Catalog.UpdateService)
				services.DELETE("/:id", catalogManage, h.Catalog.DeleteService)
			}

			// 供应商
			vendors := authorized.Group("/vendors")
			{
				vendors.GET("", h.Partner.ListVendors)
				vendors.GET("/:id", h.Partner.GetVendor)
				vendors.POST("", poManage, h.Partner.CreateVendor)
				vendors.PUT("/:id", poManage, h.Partner.UpdateVendor)
				vendors.DELETE("/:id", poManage, h.Partner.DeleteVendor)
			}
			suppliers := authorized.Group("/suppliers")
			{
				suppliers.GET("", h.Partner.ListSuppliers)
				suppliers.GET("/:id", h.Partner.GetSupplier)
				suppliers.POST("", poManage, h.Partner.CreateSupplier)
				suppliers.PUT("/:id", poManage, h.Partner.UpdateSupplier)
				// 删除权限在服务层校验
				suppliers.DELETE("/:id", h.Partner.DeleteSupplier)
			}

			// 请购单，审批/强制权限在服务层校验
			reqs := authorized.Group("/requisitions")
			{
				reqs.GET("", h.Requisition.List)
				reqs.GET("/summary", h.Requisition.Summary)
				reqs.GET("/export", h.Requisition.Export)
				reqs.POST("", h.Requisition.Create)
				reqs.GET("/:id", h.Requisition.Get)
				reqs.PUT("/:id", h.Requisition.Update)
				reqs.DELETE("/:id", h.Requisition.Delete)
				reqs.PUT("/:id/status", h.Requisition.UpdateStatus)
				reqs.PUT("/:id/status/force", h.Requisition.ForceStatus)
				reqs.PUT("/:id/adjust", h.Requisition.Adjust)
				reqs.GET("/:id/activities", h.Requisition.Activities)
				reqs.GET("/:id/purchase-orders", h.Requisition.PurchaseOrders)
				reqs.POST("/:id/purchase-orders", poManage, h.Requisition.CreatePurchaseOrder)
			}

			// 采购订单
			pos := authorized.Group("/purchase-orders")
			{
				pos.GET("", h.PurchaseOrder.List)
				pos.GET("/export", h.PurchaseOrder.Export)
				pos.GET("/:id", h.PurchaseOrder.Get)
				pos.POST("", poManage, h.PurchaseOrder.Create)
				pos.POST("/:id/approve", poManage, h.PurchaseOrder.Approve)
				pos.POST("/:id/order", poManage, h.PurchaseOrder.MarkOrdered)
				pos.POST("/:id/complete", poManage, h.PurchaseOrder.Complete)
				pos.POST("/:id/cancel", poManage, h.PurchaseOrder.Cancel)
				pos.POST("/:id/deliveries", poManage, h.PurchaseOrder.CreateDelivery)
			}

			// 交货
			deliveries := authorized.Group("/deliveries")
			{
				deliveries.GET("", h.Delivery.List)
				deliveries.GET("/:id", h.Delivery.Get)
				deliveries.POST("/:id/receive", receive, h.Delivery.Receive)
				deliveries.GET("/:id/attachments", h.Attachment.List(entity.EntityDelivery))
				deliveries.POST("/:id/attachments", receive, h.Attachment.Upload(entity.EntityDelivery))
			}

			// 退货
			returns := authorized.Group("/returns")
			{
				returns.GET("", h.Claim.ListReturns)
				returns.GET("/:id", h.Claim.GetReturn)
				returns.POST("", receive, h.Claim.CreateReturn)
				returns.POST("/:id/approve", poManage, h.Claim.ApproveReturn)
				returns.POST("/:id/reject", poManage, h.Claim.RejectReturn)
				returns.GET("/:id/attachments", h.Attachment.List(entity.EntityReturn))
				returns.POST("/:id/attachments", receive, h.Attachment.Upload(entity.EntityReturn))
			}

			// 返工
			reworks := authorized.Group("/reworks")
			{
				reworks.GET("", h.Claim.ListReworks)
				reworks.GET("/:id", h.Claim.GetRework)
				reworks.POST("", receive, h.Claim.CreateRework)
				reworks.POST("/:id/approve", poManage, h.Claim.ApproveRework)
				reworks.POST("/:id/reject", poManage, h.Claim.RejectRework)
				reworks.DELETE("/:id", receive, h.Claim.DeleteRework)
				reworks.GET("/:id/attachments", h.Attachment.List(entity.EntityRework))
				reworks.POST("/:id/attachments", receive, h.Attachment.Upload(entity.EntityRework))
			}

			authorized.DELETE("/attachments/:id", receive, h.Attachment.Delete)
		}
	}
}
