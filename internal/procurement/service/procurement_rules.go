package service

import (
	"fmt"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/shopspring/decimal"
)

// CanTransitionPO PO状态流转检查
func CanTransitionPO(from, to string) bool {
	return canTransition(entity.ValidPOTransitions, from, to)
}

// CanTransitionClaim 退货/返工状态流转检查
func CanTransitionClaim(from, to string) bool {
	return canTransition(entity.ValidClaimTransitions, from, to)
}

// ComputeOrderTotal 计算行小计并汇总PO总额
func ComputeOrderTotal(po *entity.PurchaseOrder) decimal.Decimal {
	total := decimal.Zero
	for i := range po.Items {
		it := &po.Items[i]
		it.Total = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(it.Total)
	}
	for i := range po.Services {
		s := &po.Services[i]
		s.Total = s.UnitCost.Mul(decimal.NewFromInt(int64(s.Quantity)))
		total = total.Add(s.Total)
	}
	return total
}

// RemainingQuantities PO各行剩余未交数量
func RemainingQuantities(po *entity.PurchaseOrder, deliveredItems, deliveredServices map[string]int) (items, services map[string]int) {
	items = make(map[string]int, len(po.Items))
	for _, it := range po.Items {
		left := it.Quantity - deliveredItems[it.ID]
		if left < 0 {
			left = 0
		}
		items[it.ID] = left
	}
	services = make(map[string]int, len(po.Services))
	for _, s := range po.Services {
		left := s.Quantity - deliveredServices[s.ID]
		if left < 0 {
			left = 0
		}
		services[s.ID] = left
	}
	return items, services
}

// FullyDelivered 全部行是否已交齐
func FullyDelivered(po *entity.PurchaseOrder, deliveredItems, deliveredServices map[string]int) bool {
	items, services := RemainingQuantities(po, deliveredItems, deliveredServices)
	for _, left := range items {
		if left > 0 {
			return false
		}
	}
	for _, left := range services {
		if left > 0 {
			return false
		}
	}
	return true
}

// DeliveryLineInput 交货行输入，LineID 为PO行ID
type DeliveryLineInput struct {
	LineID   string `json:"line_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// PlanDelivery 根据输入生成交货行；未指定行时按剩余数量全部交货
func PlanDelivery(po *entity.PurchaseOrder, remainingItems, remainingServices map[string]int, lines []DeliveryLineInput) (*entity.Delivery, error) {
	d := &entity.Delivery{
		POID:   po.ID,
		Status: entity.DeliveryStatusPending,
		Type:   entity.DeliveryTypeItemPurchase,
	}
	if po.Type == entity.RequisitionTypeServices {
		d.Type = entity.DeliveryTypeServiceDelivery
	}

	requested := make(map[string]int, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, fieldError(fmt.Sprintf("lines.%d.quantity", i), "Quantity must be greater than 0")
		}
		requested[l.LineID] += l.Quantity
	}
	if len(lines) > 0 {
		for i, l := range lines {
			_, isItem := remainingItems[l.LineID]
			_, isService := remainingServices[l.LineID]
			if !isItem && !isService {
				return nil, fieldError(fmt.Sprintf("lines.%d.line_id", i), "Line does not belong to this purchase order")
			}
		}
	}

	total := decimal.Zero
	for _, it := range po.Items {
		qty := remainingItems[it.ID]
		if len(lines) > 0 {
			want, ok := requested[it.ID]
			if !ok {
				continue
			}
			if want > qty {
				return nil, fieldError("lines", fmt.Sprintf("Delivered quantity %d exceeds remaining %d", want, qty))
			}
			qty = want
		}
		if qty <= 0 {
			continue
		}
		d.Items = append(d.Items, entity.DeliveryItem{
			ID:          newID(),
			OrderItemID: strPtr(it.ID),
			ItemID:      it.ItemID,
			Quantity:    qty,
			UnitPrice:   it.UnitPrice,
		})
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(qty))))
	}
	for _, s := range po.Services {
		qty := remainingServices[s.ID]
		if len(lines) > 0 {
			want, ok := requested[s.ID]
			if !ok {
				continue
			}
			if want > qty {
				return nil, fieldError("lines", fmt.Sprintf("Delivered quantity %d exceeds remaining %d", want, qty))
			}
			qty = want
		}
		if qty <= 0 {
			continue
		}
		d.Services = append(d.Services, entity.DeliveryService{
			ID:             newID(),
			OrderServiceID: strPtr(s.ID),
			ServiceID:      s.ServiceID,
			Quantity:       qty,
			UnitCost:       s.UnitCost,
		})
		total = total.Add(s.UnitCost.Mul(decimal.NewFromInt(int64(qty))))
	}

	if len(d.Items) == 0 && len(d.Services) == 0 {
		return nil, newValidationError("Nothing remains to be delivered on this purchase order")
	}
	d.TotalCost = total
	return d, nil
}

// ClaimLineInput 退货/返工行输入，LineID 为原交货行ID
type ClaimLineInput struct {
	LineID   string `json:"line_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Reason   string `json:"reason"`
}

// CheckClaimQuantities 校验申请数量不超过 交货数量 - 已申请数量
func CheckClaimQuantities(delivered map[string]int, claimed map[string]int, lines []ClaimLineInput) error {
	if len(lines) == 0 {
		return newValidationError("Please select at least one line")
	}
	requested := make(map[string]int, len(lines))
	for i, l := range lines {
		qty, ok := delivered[l.LineID]
		if !ok {
			return fieldError(fmt.Sprintf("lines.%d.line_id", i), "Line does not belong to this delivery")
		}
		if l.Quantity <= 0 {
			return fieldError(fmt.Sprintf("lines.%d.quantity", i), "Quantity must be greater than 0")
		}
		requested[l.LineID] += l.Quantity
		if left := qty - claimed[l.LineID]; requested[l.LineID] > left {
			return fieldError(fmt.Sprintf("lines.%d.quantity", i),
				fmt.Sprintf("Quantity cannot exceed %d", left))
		}
	}
	return nil
}
