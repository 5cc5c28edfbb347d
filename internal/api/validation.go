package api

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/lifecycle"
)

var registerOnce sync.Once

// registerValidators adds the plm_* tags to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("plm_stage", func(fl validator.FieldLevel) bool {
			return lifecycle.Valid(domain.Stage(fl.Field().String()))
		})
		_ = v.RegisterValidation("plm_status", func(fl validator.FieldLevel) bool {
			return domain.Status(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("plm_priority", func(fl validator.FieldLevel) bool {
			return domain.Priority(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("plm_role", func(fl validator.FieldLevel) bool {
			return domain.Role(fl.Field().String()).Valid()
		})
	})
}
