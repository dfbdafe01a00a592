package server

import (
	"github.com/go-playground/validator/v10"

	"github.com/modelguard/modelguard/pkg/entities"
)

func NewValidator() *validator.Validate {
	validate := validator.New()

	// Enum fields arrive as strings; each rule checks membership.
	validate.RegisterValidation("jobkind", func(fl validator.FieldLevel) bool {
		return entities.JobKind(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("alerttype", func(fl validator.FieldLevel) bool {
		return entities.AlertType(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("alertseverity", func(fl validator.FieldLevel) bool {
		return entities.AlertSeverity(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("retrainreason", func(fl validator.FieldLevel) bool {
		return entities.RetrainReason(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("baselineop", func(fl validator.FieldLevel) bool {
		return entities.BaselineOperator(fl.Field().String()).Valid()
	})

	return validate
}
