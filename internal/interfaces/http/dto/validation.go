package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// voiceIDPattern ElevenLabs 音色 ID 只含字母数字、下划线和连字符
var voiceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// RegisterValidator 让校验错误使用 json 字段名
func RegisterValidator() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("voice_id", func(fl validator.FieldLevel) bool {
			return voiceIDPattern.MatchString(fl.Field().String())
		})
	})
}

// FieldErrors 把绑定错误转换为字段 -> 消息列表
// 请求体为空时返回 nil，由业务层按缺失字段处理
func FieldErrors(err error) map[string][]string {
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	out := make(map[string][]string)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := fieldPath(fe.Namespace())
			out[field] = append(out[field], fieldMessage(field, fe))
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		out[field] = []string{fmt.Sprintf("The %s field must be of type %s.", field, typeErr.Type.String())}
		return out
	}

	out["body"] = []string{"The request body must be valid JSON."}
	return out
}

// FirstMessage 返回按字段名排序后的第一条消息
func FirstMessage(errs map[string][]string) string {
	first := ""
	for field, msgs := range errs {
		if len(msgs) == 0 {
			continue
		}
		if first == "" || field < first {
			first = field
		}
	}
	if first == "" {
		return "The given data was invalid."
	}
	return errs[first][0]
}

// fieldPath 去掉结构体名前缀：LoginRequest.email -> email
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	case "voice_id":
		return fmt.Sprintf("The %s field may only contain letters, numbers, dashes and underscores.", field)
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
