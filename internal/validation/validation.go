// Package validation проверяет тела запросов до вызова сервиса.
package validation

import (
	"github.com/GoArmGo/UsersApp/internal/apperror"
	"github.com/GoArmGo/UsersApp/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// MsgValidationFailed — сообщение ответа 400 при ошибках валидации
const MsgValidationFailed = "Validation failed"

// Errors — сообщения об ошибках по именам полей JSON
type Errors map[string][]string

type rule struct {
	tag     string
	message string
}

// Все правила поля проверяются независимо,
// на одно поле может прийти несколько сообщений.
// Правила с omitempty пропускают пустое значение.
var (
	emailRules = []rule{
		{"omitempty,email", "Invalid email format"},
		{"omitempty,max=255", "Email must not exceed 255 characters"},
	}
	nameRules = []rule{
		{"omitempty,max=255", "Name must not exceed 255 characters"},
		{"omitempty,min=2", "Name must be at least 2 characters"},
	}
	// notblank отклоняет и строку из одних пробелов
	emailRequired = rule{"notblank", "Email is required"}
	nameRequired  = rule{"notblank", "Name is required"}
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// имя тега фиксировано, ошибка регистрации невозможна
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &Validator{validate: v}
}

// ValidateCreate проверяет тело POST /api/users
func (v *Validator) ValidateCreate(p domain.CreateUserPayload) error {
	errs := Errors{}
	v.check(errs, "email", p.Email, append([]rule{emailRequired}, emailRules...))
	v.check(errs, "name", p.Name, append([]rule{nameRequired}, nameRules...))
	return errs.err()
}

// ValidateUpdate проверяет только переданные непустые поля
func (v *Validator) ValidateUpdate(p domain.UpdateUserPayload) error {
	errs := Errors{}
	if email, ok := p.EmailValue(); ok {
		v.check(errs, "email", email, emailRules)
	}
	if name, ok := p.NameValue(); ok {
		v.check(errs, "name", name, nameRules)
	}
	return errs.err()
}

func (v *Validator) check(errs Errors, field, value string, rules []rule) {
	for _, r := range rules {
		if err := v.validate.Var(value, r.tag); err != nil {
			errs[field] = append(errs[field], r.message)
		}
	}
}

func (e Errors) err() error {
	if len(e) == 0 {
		return nil
	}
	return apperror.BadRequest(MsgValidationFailed, e)
}
