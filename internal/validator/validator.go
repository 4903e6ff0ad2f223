package validator

import (
	"reflect"
	"slices"
	"strings"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/go-playground/validator/v10"
)

var difficultyLevels = []models.DifficultyLevel{
	models.DifficultyEasy,
	models.DifficultyMedium,
	models.DifficultyHard,
}

// Validator combines struct tag validation with question content rules
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

func New() *Validator {
	structValidator := validator.New(validator.WithRequiredStructEnabled())
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates struct tags and converts failures to ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return slices.Contains(models.QuestionTypes, models.QuestionType(fl.Field().String()))
	})
	validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return slices.Contains(difficultyLevels, models.DifficultyLevel(fl.Field().String()))
	})

	// Report fields by their json names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
