package engine

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderRe находит токены вида {{path.to.field}}.
var placeholderRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// payloadPrefix — необязательный первый сегмент пути.
// {{payload.user.email}} и {{user.email}} эквивалентны.
const payloadPrefix = "payload"

// Resolve подставляет значения из payload в плейсхолдеры строки.
//
// Нестроковые значения возвращаются как есть. Отсутствующие данные
// заменяются пустой строкой — Resolve никогда не возвращает ошибку.
//
//	Resolve("Hi {{user.name}}", map[string]any{"user": map[string]any{"name": "Ann"}})
//	// "Hi Ann"
func Resolve(value any, payload map[string]any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return ResolveString(s, payload)
}

// ResolveString подставляет значения из payload во все плейсхолдеры строки.
func ResolveString(s string, payload map[string]any) string {
	// Быстрый путь: строка без шаблонов
	if !strings.Contains(s, "{{") {
		return s
	}

	return placeholderRe.ReplaceAllStringFunc(s, func(token string) string {
		path := token[2 : len(token)-2]
		value, ok := Lookup(payload, path)
		if !ok {
			return ""
		}
		return Stringify(value)
	})
}

// ResolveConfig рендерит конфигурацию действия.
//
// Каждый ключ верхнего уровня обрабатывается независимо, набор ключей
// сохраняется 1:1. Вложенные объекты не обходятся.
func ResolveConfig(config map[string]any, payload map[string]any) map[string]any {
	result := make(map[string]any, len(config))
	for key, val := range config {
		result[key] = Resolve(val, payload)
	}
	return result
}

// Lookup проходит по payload по пути из сегментов, разделённых точкой.
//
// Возвращает false, если на каком-то шаге значение nil, не является
// объектом/массивом или ключа нет.
func Lookup(payload map[string]any, path string) (any, bool) {
	keys := strings.Split(strings.TrimSpace(path), ".")
	if keys[0] == payloadPrefix {
		keys = keys[1:]
	}

	var current any
	if payload != nil {
		current = payload
	}

	for _, key := range keys {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			current = next

		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]

		default:
			// nil, строка, число — дальше идти некуда
			return nil, false
		}
	}

	return current, true
}

// Stringify приводит значение к строке для подстановки.
//
// nil → "", числа — в кратчайшей записи, объекты и массивы — JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
