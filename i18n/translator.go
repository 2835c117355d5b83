package i18n

import "strings"

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example,
// "param" for parametrised codes such as wrongType:string).
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	param := data["param"]
	switch t.lang {
	case "ja":
		switch code {
		case "required":
			return "必須項目です"
		case "allowNull":
			return "null は許可されていません"
		case "wrongType":
			return "型が不正です (期待: " + param + ")"
		case "unknownRule":
			return "未知のルールです: " + param
		case "writePermissions":
			return "書き込み権限がありません"
		case "invalidObject":
			return "オブジェクトではありません"
		case "invalidKey":
			return "未知のキーです"
		case "minLength":
			return "短すぎます"
		case "maxLength":
			return "長すぎます"
		case "min":
			return "小さすぎます"
		case "max":
			return "大きすぎます"
		case "isEmail":
			return "メールアドレスの形式が不正です"
		case "isUrl":
			return "URL の形式が不正です"
		case "match", "notMatch", "like", "notLike":
			return "形式が不正です"
		}
	default: // "en"
		switch code {
		case "required":
			return "value is required"
		case "allowNull":
			return "null is not allowed"
		case "wrongType":
			return "expected " + param
		case "unknownRule":
			return "unknown rule " + param
		case "writePermissions":
			return "missing write permission"
		case "invalidObject":
			return "expected an object"
		case "invalidKey":
			return "unknown key"
		case "minLength":
			return "too short"
		case "maxLength":
			return "too long"
		case "min":
			return "too small"
		case "max":
			return "too big"
		case "isEmail":
			return "invalid email address"
		case "isUrl":
			return "invalid url"
		case "match", "notMatch", "like", "notLike":
			return "invalid format"
		}
	}
	return code
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
// Codes of the form "name:param" are looked up by name with data["param"]
// set to the parameter.
func T(code string, data map[string]string) string {
	if name, param, ok := strings.Cut(code, ":"); ok {
		merged := make(map[string]string, len(data)+1)
		for k, v := range data {
			merged[k] = v
		}
		merged["param"] = param
		msg := currentTranslator.Message(name, merged)
		if msg == name {
			return code
		}
		return msg
	}
	return currentTranslator.Message(code, data)
}
