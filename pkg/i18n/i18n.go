package i18n

import (
	"embed"
	"encoding/json"
	"path"

	apperrors "GuardianAngel/pkg/errors"
	"GuardianAngel/pkg/logger"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// I18nSupport 国际化支持结构体
type I18nSupport struct {
	bundle *i18n.Bundle
}

// NewI18nSupport 初始化国际化支持，语言文件随二进制嵌入
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		tag = language.English
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name := path.Join("locales", entry.Name())
		buf, err := locales.ReadFile(name)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, name); err != nil {
			return nil, err
		}
	}

	return &I18nSupport{
		bundle: bundle,
	}, nil
}

// T 获取翻译文本
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})

	if err != nil {
		logger.Debug("translate failed", zap.String("key", key), zap.Error(err))
		return key // 返回键名作为默认值
	}

	return translation
}

// TWithDefaultLang 使用默认语言获取翻译文本
func (i *I18nSupport) TWithDefaultLang(key string, templateData map[string]interface{}) string {
	return i.T("", key, templateData)
}

// ErrorMessage 将分类错误映射为面向用户的一句话
func (i *I18nSupport) ErrorMessage(languageTag string, err error) string {
	if err == nil {
		return ""
	}
	key, data := messageID(err)
	if key == "" {
		return apperrors.GetMessage(err)
	}
	return i.T(languageTag, key, data)
}

func messageID(err error) (string, map[string]interface{}) {
	e, ok := apperrors.As(err)
	if !ok {
		return "GenericError", nil
	}
	switch e.Code {
	case apperrors.CodeTimeout:
		return "TimeoutError", nil
	case apperrors.CodeSessionExpired:
		return "SessionExpired", nil
	case apperrors.CodeUnauthorized:
		// 登录失败等，直接展示服务端消息
		return "", nil
	case apperrors.CodeForbidden:
		return "Forbidden", nil
	case apperrors.CodeNotFound:
		return "NotFound", nil
	case apperrors.CodeConflict:
		return "Conflict", nil
	case apperrors.CodeUnprocessable:
		return "InvalidData", nil
	case apperrors.CodeServerError:
		return "ServerError", nil
	case apperrors.CodeNotAuthenticated:
		return "NotAuthenticated", nil
	case apperrors.CodeLocationUnavailable:
		return "LocationUnavailable", nil
	case apperrors.CodeAlertNotDeletable:
		return "AlertNotDeletable", nil
	case apperrors.CodeAlertCooldown:
		return "AlertCooldown", map[string]interface{}{"Seconds": e.ContextValue("retry_after")}
	case apperrors.CodeHomeAndWork:
		return "HomeAndWork", nil
	}

	switch e.Kind {
	case apperrors.KindTransport:
		return "TransportError", nil
	case apperrors.KindDecode:
		return "DecodeError", nil
	case apperrors.KindAPI, apperrors.KindValidation:
		// 服务端/校验消息本身即面向用户
		return "", nil
	}
	return "GenericError", nil
}
