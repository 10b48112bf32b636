package auth

import (
	"unicode/utf8"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/stemlearn/core"
	"github.com/trezcool/stemlearn/core/session"
)

var (
	pwdMinLen     = 7
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = "Password must be at least 7 characters long!"

	pwdMatchTag  = "eqfield"
	pwdMatchText = "Passwords do not match!"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	SignupRequest struct {
		Name            string `json:"name" validate:"required"`
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,pwdminlen"`
		ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	}

	// signupBody is what the backend receives; the confirmation never leaves the client.
	signupBody struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	authResponse struct {
		Token string `json:"Token"`
		Role  string `json:"Role"`
	}

	errorResponse struct {
		Error string `json:"Error"` // the backend answers either "Error" or "error"
	}

	// Result is what a successful login or signup tells the caller.
	Result struct {
		Role    session.Role
		Landing string
	}
)

// NewValidator returns a validator knowing the login and signup rules, and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	RegisterValidators(validate, translator)
	return validate, translator
}

// RegisterValidators adds the login and signup rules to `validate`.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(pwdMinLenTag, pwdMinLenValidation)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdMatchTag, pwdMatchText, true)
}

// pwdMinLenValidation counts characters, not bytes.
func pwdMinLenValidation(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(fl.Field().String()) >= pwdMinLen
}
