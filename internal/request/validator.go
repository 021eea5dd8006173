package request

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// Validation failure codes, in the order they are checked.
const (
	CodeMissingField     = "MISSING_FIELD"
	CodeNoBooks          = "NO_BOOKS"
	CodeTooManyBooks     = "TOO_MANY_BOOKS"
	CodeInvalidEmail     = "INVALID_EMAIL"
	CodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
)

// ValidationError is a recoverable input problem shown to the requester.
type ValidationError struct {
	Code    string
	Message string
	Fields  []string
	Status  int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var basicEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("basic_email", validateBasicEmail)
}

func validateBasicEmail(fl validator.FieldLevel) bool {
	return basicEmail.MatchString(fl.Field().String())
}

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool {
	return validate.Var(s, "basic_email") == nil
}

// Validate checks a normalized form and its items. The first failing rule wins.
func Validate(f Form, items []Item) error {
	if err := validate.Struct(f); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
		}
		return &ValidationError{
			Code:    CodeMissingField,
			Message: "모든 필수 필드를 입력해주세요.",
			Fields:  fields,
			Status:  http.StatusBadRequest,
		}
	}

	if len(items) == 0 {
		return &ValidationError{Code: CodeNoBooks, Message: "최소 1권 이상의 도서를 선택해주세요.", Status: http.StatusBadRequest}
	}
	if len(items) > MaxBooks {
		return &ValidationError{Code: CodeTooManyBooks, Message: "최대 3권까지만 신청 가능합니다.", Status: http.StatusBadRequest}
	}

	if !ValidEmail(f.Email) {
		return &ValidationError{Code: CodeInvalidEmail, Message: "유효하지 않은 이메일 형식입니다.", Fields: []string{"Email"}, Status: http.StatusBadRequest}
	}
	return nil
}
