package Controllers

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var trans ut.Translator

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	trans, _ = uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, trans)
}

// validationMessages turns validator errors into the human-readable
// strings the frontend shows directly.
func validationMessages(err error) []string {
	var messages []string

	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			messages = append(messages, e.Translate(trans))
		}
		return messages
	}

	return []string{err.Error()}
}
