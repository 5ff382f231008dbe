package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 列表导出为xlsx
type ExportService struct {
	repos *repository.Repositories
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

var requisitionExportHeaders = []string{
	"Ref No", "Type", "Status", "Priority", "Requestor", "Lines", "Total Cost", "Remarks", "Created At",
}

var requisitionLineExportHeaders = []string{
	"Ref No", "Code", "Name", "Quantity", "Approved Quantity", "Final Quantity", "Unit Price", "Line Total",
}

var poExportHeaders = []string{
	"PO No", "Vendor", "Type", "Status", "Payment Type", "Total Cost", "Expected Date", "Created At",
}

func newWorkbook() (*excelize.File, int) {
	f := excelize.NewFile()
	// 表头样式: 加粗
	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	return f, style
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheet, "A", last, 18)
}

func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
	}
}

// ExportRequisitions 导出请购单（汇总 + 明细两个工作表）
func (s *ExportService) ExportRequisitions(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	reqs, err := s.repos.Requisition.FindAllForExport(ctx, filters)
	if err != nil {
		return nil, "", fmt.Errorf("查询请购单失败: %w", err)
	}

	f, style := newWorkbook()
	sheet := "Requisitions"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, requisitionExportHeaders, style)

	lineSheet := "Lines"
	if _, err := f.NewSheet(lineSheet); err != nil {
		return nil, "", fmt.Errorf("create sheet: %w", err)
	}
	writeHeader(f, lineSheet, requisitionLineExportHeaders, style)

	lineRow := 2
	for i := range reqs {
		v := BuildRequisitionView(&reqs[i])
		total, _ := v.ComputedTotal.Float64()
		writeRow(f, sheet, i+2,
			v.RefNo, v.Type, v.Status, v.Priority, v.RequestorName,
			len(v.Lines), total, v.Remarks, v.CreatedAt.Format("2006-01-02 15:04"))

		for _, l := range v.Lines {
			price, _ := l.UnitPrice.Float64()
			lineTotal, _ := l.LineTotal.Float64()
			approved := ""
			if l.ApprovedQuantity != nil {
				approved = fmt.Sprintf("%d", *l.ApprovedQuantity)
			}
			writeRow(f, lineSheet, lineRow,
				v.RefNo, l.Code, l.Name, l.Quantity, approved, l.FinalQuantity, price, lineTotal)
			lineRow++
		}
	}

	filename := fmt.Sprintf("requisitions_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}

// ExportPurchaseOrders 导出采购订单
func (s *ExportService) ExportPurchaseOrders(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	orders, err := s.repos.PO.FindAllForExport(ctx, filters)
	if err != nil {
		return nil, "", fmt.Errorf("查询采购订单失败: %w", err)
	}

	f, style := newWorkbook()
	sheet := "Purchase Orders"
	f.SetSheetName("Sheet1", sheet)
	writeHeader(f, sheet, poExportHeaders, style)

	for i, po := range orders {
		vendor := ""
		if po.Vendor != nil {
			vendor = po.Vendor.Name
		}
		expected := ""
		if po.ExpectedDate != nil {
			expected = po.ExpectedDate.Format("2006-01-02")
		}
		total, _ := po.TotalCost.Float64()
		writeRow(f, sheet, i+2,
			po.PONo, vendor, po.Type, po.Status, po.PaymentType, total, expected,
			po.CreatedAt.Format("2006-01-02 15:04"))
	}

	filename := fmt.Sprintf("purchase_orders_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}
