package handler

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/entity"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册自定义校验标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	rules := map[string][]string{
		"requisition_type":   {entity.RequisitionTypeItems, entity.RequisitionTypeServices},
		"requisition_status": entity.RequisitionStatuses,
		"priority":           {entity.PriorityLow, entity.PriorityNormal, entity.PriorityHigh, entity.PriorityUrgent},
		"payment_type":       {entity.PaymentTypeCash, entity.PaymentTypeDisbursement, entity.PaymentTypeStoreCredit},
	}
	for tag, allowed := range rules {
		if err := v.RegisterValidation(tag, oneOf(allowed)); err != nil {
			return err
		}
	}
	return nil
}

func oneOf(allowed []string) validator.Func {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	return func(fl validator.FieldLevel) bool {
		return set[fl.Field().String()]
	}
}
