package llm

// Option keys recognized across providers. Providers ignore keys they do
// not support.
const (
	// OptionTemperature controls sampling temperature (float64).
	OptionTemperature = "temperature"
	// OptionMaxTokens bounds the generated token count (int).
	OptionMaxTokens = "max_tokens"
	// OptionJSONResponse asks the provider for a JSON-only response where
	// supported (bool). The judge sets this to harden score parsing.
	OptionJSONResponse = "json_response"
	// OptionSystemPrompt carries the system prompt (string).
	OptionSystemPrompt = "system_prompt"
)

// ExtractOptionalFloat reads a float64 option, tolerating int values.
func ExtractOptionalFloat(options map[string]any, key string) (float64, bool) {
	v, ok := options[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// ExtractOptionalInt reads an int option, tolerating float64 values from
// decoded JSON.
func ExtractOptionalInt(options map[string]any, key string) (int, bool) {
	v, ok := options[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// ExtractOptionalString reads a string option.
func ExtractOptionalString(options map[string]any, key string) (string, bool) {
	v, ok := options[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ExtractOptionalBool reads a bool option.
func ExtractOptionalBool(options map[string]any, key string) (bool, bool) {
	v, ok := options[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
