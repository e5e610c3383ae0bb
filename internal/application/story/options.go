package story

import (
	"fmt"
	"sort"
	"strings"
)

// GenerateInput 生成请求
type GenerateInput struct {
	Transcript string
	Options    Options
}

// Options 可选生成参数，nil 表示使用默认值
type Options struct {
	MaxTokens   *int
	Temperature *float64
}

// resolvedOptions 填充默认值后的参数
type resolvedOptions struct {
	MaxTokens   int
	Temperature float64
}

// ValidationError 字段级校验错误
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if msg := e.FirstMessage(); msg != "" {
		return msg
	}
	return "validation failed"
}

// FirstMessage 返回按字段名排序后的第一条错误信息
func (e *ValidationError) FirstMessage() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(e.Fields[k]) > 0 {
			return e.Fields[k][0]
		}
	}
	return ""
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// validate 校验输入并填充默认值
func (g *Generator) validate(in GenerateInput) (resolvedOptions, *ValidationError) {
	verr := &ValidationError{}

	if strings.TrimSpace(in.Transcript) == "" {
		verr.add("transcript", "The transcript field is required.")
	}

	opts := resolvedOptions{
		MaxTokens:   g.cfg.DefaultMaxTokens,
		Temperature: g.cfg.DefaultTemperature,
	}
	if v := in.Options.MaxTokens; v != nil {
		if *v <= 0 {
			verr.add("options.maxTokens", "The options.maxTokens field must be a positive integer.")
		}
		opts.MaxTokens = *v
	}
	if v := in.Options.Temperature; v != nil {
		if *v < 0 || *v > 2 {
			verr.add("options.temperature", fmt.Sprintf("The options.temperature field must be between 0 and 2, got %g.", *v))
		}
		opts.Temperature = *v
	}

	if len(verr.Fields) > 0 {
		return resolvedOptions{}, verr
	}
	return opts, nil
}
