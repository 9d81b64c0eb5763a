package httpapi

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// validateDecideBody 在绑定前检查请求体结构，给出比 json 解码更具体的错误。
func validateDecideBody(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("request body is empty")
	}
	if !gjson.Valid(raw) {
		return fmt.Errorf("request body is not valid json")
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsObject() {
		return fmt.Errorf("request body must be a json object")
	}
	options := parsed.Get("options")
	if !options.Exists() || !options.IsArray() {
		return fmt.Errorf("options must be an array")
	}
	if err := walkOptions(options); err != nil {
		return err
	}
	if sid := parsed.Get("strategy_id"); sid.Exists() && sid.Type != gjson.String {
		return fmt.Errorf("strategy_id must be a string")
	}
	if ctx := parsed.Get("context"); ctx.Exists() && !ctx.IsObject() {
		return fmt.Errorf("context must be an object")
	}
	if tl := parsed.Get("time_limit_ms"); tl.Exists() && (tl.Type != gjson.Number || tl.Int() < 0) {
		return fmt.Errorf("time_limit_ms must be a non-negative number")
	}
	return nil
}

func walkOptions(options gjson.Result) error {
	idx := 0
	seen := make(map[string]bool)
	var schemaErr error
	options.ForEach(func(_, opt gjson.Result) bool {
		idx++
		if !opt.IsObject() {
			schemaErr = fmt.Errorf("option #%d must be an object", idx)
			return false
		}
		id := strings.TrimSpace(opt.Get("id").String())
		if id == "" {
			schemaErr = fmt.Errorf("option #%d is missing id", idx)
			return false
		}
		if seen[id] {
			schemaErr = fmt.Errorf("option #%d duplicates id %q", idx, id)
			return false
		}
		seen[id] = true
		if impact := opt.Get("impact"); impact.Exists() && !impact.IsObject() {
			schemaErr = fmt.Errorf("option %s impact must be an object", id)
			return false
		}
		if params := opt.Get("parameters"); params.Exists() && !params.IsObject() {
			schemaErr = fmt.Errorf("option %s parameters must be an object", id)
			return false
		}
		return true
	})
	return schemaErr
}
