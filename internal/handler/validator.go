package handler

import (
	"fmt"
	"reflect"
	"strings"

	"support_chat_server/pkg/enum/message/emotion_enum"
	"support_chat_server/pkg/enum/message/entity_type_enum"
	"support_chat_server/pkg/enum/session/outcome_enum"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 参数错误提示使用的翻译器
var Trans ut.Translator

// domainRule 分类器标注的校验规则，取值集合来自 pkg/enum
type domainRule struct {
	tag   string
	valid func(string) bool
	zh    string
	en    string
}

var domainRules = []domainRule{
	{
		tag:   "emotion",
		valid: emotion_enum.Valid,
		zh:    "{0}必须是以下情绪标签之一: " + strings.Join(emotion_enum.All, ", "),
		en:    "{0} must be one of: " + strings.Join(emotion_enum.All, ", "),
	},
	{
		tag:   "outcome",
		valid: outcome_enum.Valid,
		zh:    "{0}必须是以下结果之一: " + strings.Join(outcome_enum.All, ", "),
		en:    "{0} must be one of: " + strings.Join(outcome_enum.All, ", "),
	},
	{
		// 实体类型同时接受展示名与 snake_case 写法
		tag: "entity_type",
		valid: func(s string) bool {
			_, ok := entity_type_enum.Normalize(s)
			return ok
		},
		zh: "{0}不是支持的实体类型",
		en: "{0} is not a supported entity type",
	},
}

// InitTrans 注册标注校验规则并初始化 locale 对应的翻译器
// locale 取 "zh" 或 "en"，其他值按英文处理
func InitTrans(locale string) error {
	if binding.Validator == nil {
		binding.Validator = &defaultValidator{validator: validator.New()}
	}
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	// 错误提示使用 json 字段名，与请求体保持一致
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	for _, rule := range domainRules {
		valid := rule.valid
		if err := v.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		}); err != nil {
			return fmt.Errorf("register validation %s: %w", rule.tag, err)
		}
	}

	enT := en.New()
	uni := ut.New(enT, zh.New(), enT)
	Trans, ok = uni.GetTranslator(locale)
	if !ok {
		return fmt.Errorf("uni.GetTranslator(%s) failed", locale)
	}

	var err error
	if locale == "zh" {
		err = zh_translations.RegisterDefaultTranslations(v, Trans)
	} else {
		err = en_translations.RegisterDefaultTranslations(v, Trans)
	}
	if err != nil {
		return err
	}
	for _, rule := range domainRules {
		text := rule.en
		if locale == "zh" {
			text = rule.zh
		}
		if err := v.RegisterTranslation(rule.tag, Trans, registerText(rule.tag, text), translateField); err != nil {
			return fmt.Errorf("register translation %s: %w", rule.tag, err)
		}
	}
	return nil
}

func registerText(tag, text string) validator.RegisterTranslationsFunc {
	return func(trans ut.Translator) error {
		return trans.Add(tag, text, true)
	}
}

func translateField(trans ut.Translator, fe validator.FieldError) string {
	msg, err := trans.T(fe.Tag(), fe.Field())
	if err != nil {
		return fe.Error()
	}
	return msg
}

// RemoveTopStruct 去掉字段名中的请求结构体前缀，如 SendMessageRequest.emotion -> emotion
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string, len(fields))
	for field, msg := range fields {
		res[field[strings.Index(field, ".")+1:]] = msg
	}
	return res
}

// defaultValidator binding.Validator 为空时的兜底实现
type defaultValidator struct {
	validator *validator.Validate
}

func (v *defaultValidator) ValidateStruct(obj any) error {
	return v.validator.Struct(obj)
}

func (v *defaultValidator) Engine() any {
	return v.validator
}
