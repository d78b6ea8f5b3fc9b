package response

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/yungbote/ielts-backend/internal/scoring"
)

const bandTag = "band"

var (
	setupOnce  sync.Once
	translator ut.Translator
)

// SetupValidator registers English messages, json field names and the band
// tag on gin's validator. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")

		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = en_translations.RegisterDefaultTranslations(v, translator)
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		_ = v.RegisterValidation(bandTag, func(fl validator.FieldLevel) bool {
			switch fl.Field().Kind() {
			case reflect.Float32, reflect.Float64:
				return scoring.ValidBand(fl.Field().Float())
			}
			return false
		})
		_ = v.RegisterTranslation(bandTag, translator,
			func(t ut.Translator) error {
				return t.Add(bandTag, "{0} must be a band between 0 and 9 in steps of 0.5", false)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(bandTag, fe.Field())
				return msg
			},
		)
	})
}

func Translator() ut.Translator {
	SetupValidator()
	return translator
}
