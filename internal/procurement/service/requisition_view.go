package service

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/shopspring/decimal"
)

// RequisitionLineView 请购行展示
type RequisitionLineView struct {
	ID               string          `json:"id"`
	RefID            string          `json:"ref_id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit,omitempty"`
	Quantity         int             `json:"quantity"`
	ApprovedQuantity *int            `json:"approved_quantity"`
	FinalQuantity    int             `json:"final_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineTotal        decimal.Decimal `json:"line_total"`
}

// RequisitionView 请购单展示，派生字段每次请求计算
type RequisitionView struct {
	entity.Requisition
	Lines                 []RequisitionLineView `json:"lines"`
	ComputedTotal         decimal.Decimal       `json:"computed_total"`
	ShowApprovedColumn    bool                  `json:"show_approved_column"`
	StatusDropdownVisible bool                  `json:"status_dropdown_visible"`
	AllowedActions        []string              `json:"allowed_actions"`
}

// BuildRequisitionView 构建展示模型
func BuildRequisitionView(req *entity.Requisition) *RequisitionView {
	v := &RequisitionView{
		Requisition:           *req,
		Lines:                 make([]RequisitionLineView, 0, req.LineCount()),
		ComputedTotal:         ComputeTotal(req),
		ShowApprovedColumn:    ShowApprovedColumn(req),
		StatusDropdownVisible: StatusDropdownVisible(req.Status),
		AllowedActions:        AllowedActions(req),
	}

	if req.Type == entity.RequisitionTypeServices {
		for _, s := range req.Services {
			line := RequisitionLineView{
				ID:               s.ID,
				RefID:            s.ServiceID,
				Quantity:         s.Quantity,
				ApprovedQuantity: s.ApprovedQuantity,
				FinalQuantity:    FinalQuantity(s.Quantity, s.ApprovedQuantity),
				UnitPrice:        s.UnitCost,
				LineTotal:        LineTotal(s.Quantity, s.ApprovedQuantity, s.UnitCost),
			}
			if s.Service != nil {
				line.Code = s.Service.Code
				line.Name = s.Service.Name
			}
			v.Lines = append(v.Lines, line)
		}
		return v
	}

	for _, it := range req.Items {
		line := RequisitionLineView{
			ID:               it.ID,
			RefID:            it.ItemID,
			Quantity:         it.Quantity,
			ApprovedQuantity: it.ApprovedQuantity,
			FinalQuantity:    FinalQuantity(it.Quantity, it.ApprovedQuantity),
			UnitPrice:        it.UnitPrice,
			LineTotal:        LineTotal(it.Quantity, it.ApprovedQuantity, it.UnitPrice),
		}
		if it.Item != nil {
			line.Code = it.Item.Code
			line.Name = it.Item.Name
			line.Unit = it.Item.Unit
		}
		v.Lines = append(v.Lines, line)
	}
	return v
}

// BuildRequisitionViews 批量构建
func BuildRequisitionViews(reqs []entity.Requisition) []*RequisitionView {
	views := make([]*RequisitionView, 0, len(reqs))
	for i := range reqs {
		views = append(views, BuildRequisitionView(&reqs[i]))
	}
	return views
}
