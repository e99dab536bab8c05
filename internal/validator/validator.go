// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("transaction_status", validateTransactionStatus)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("bill_type", validateBillType)
		_ = v.RegisterValidation("bill_status", validateBillStatus)
	}
}

func validateHexColor(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return hexColorRegex.MatchString(value)
}

func validateTransactionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "income" || value == "expense"
}

func validateTransactionStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "pending" || value == "completed"
}

func validateCategoryType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "income" || value == "expense"
}

func validateBillType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "payable" || value == "receivable"
}

func validateBillStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "pending" || value == "paid"
}
