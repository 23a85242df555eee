package gemini

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai"
)

// stripFences removes a surrounding markdown code fence such as ```json ... ```.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	raw = strings.TrimPrefix(raw, "```")
	if idx := strings.IndexByte(raw, '\n'); idx != -1 {
		// drop the language tag line
		if tag := strings.TrimSpace(raw[:idx]); !strings.ContainsAny(tag, "{[ ") {
			raw = raw[idx+1:]
		}
	}
	if idx := strings.LastIndex(raw, "```"); idx != -1 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}

func extractJSON(raw string) string {
	raw = stripFences(raw)
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func decodeObject(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: expected a json object", ai.ErrMalformedResponse)
	}
	return data, nil
}

// decodeRows accepts either a JSON array of objects or an object wrapping it under "items".
func decodeRows(raw string) ([]map[string]any, error) {
	cleaned := extractJSON(raw)

	var rows []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &rows); err == nil {
		return rows, nil
	}

	var wrapped struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil || wrapped.Items == nil {
		return nil, fmt.Errorf("%w: expected a json array of rows", ai.ErrMalformedResponse)
	}
	return wrapped.Items, nil
}

// weakDecode maps loosely typed model output onto out, converting numbers to
// strings and back where needed.
func weakDecode(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("%w: %v", ai.ErrMalformedResponse, err)
	}
	return nil
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
