package handler

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 参数校验错误的翻译器，InitTrans 之前为 nil
var Trans ut.Translator

var transOnce sync.Once

// InitTrans 初始化校验错误翻译器，locale 为 "zh" 或 "en"，其他值按 en 处理
// 重复调用只有第一次生效
func InitTrans(locale string) (err error) {
	transOnce.Do(func() { err = initTrans(locale) })
	return err
}

func initTrans(locale string) error {
	// gin v1.9+ 中 binding.Validator 可能为 nil
	if binding.Validator == nil {
		binding.Validator = &defaultValidator{validator: validator.New()}
	}
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	// 错误信息里使用 json 字段名（如 leaked_id）
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "uri"} {
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

	enT := en.New()
	uni := ut.New(enT, zh.New(), enT)
	if Trans, ok = uni.GetTranslator(locale); !ok {
		return fmt.Errorf("uni.GetTranslator(%s) failed", locale)
	}
	if locale == "zh" {
		return zh_translations.RegisterDefaultTranslations(v, Trans)
	}
	return en_translations.RegisterDefaultTranslations(v, Trans)
}

// RemoveTopStruct 去掉字段名里的结构体前缀，如 "SendMessageRequest.content" → "content"
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string, len(fields))
	for field, err := range fields {
		res[field[strings.Index(field, ".")+1:]] = err
	}
	return res
}

// defaultValidator binding.StructValidator 的最小实现
type defaultValidator struct {
	validator *validator.Validate
}

func (v *defaultValidator) ValidateStruct(obj interface{}) error {
	return v.validator.Struct(obj)
}

func (v *defaultValidator) Engine() interface{} {
	return v.validator
}
