package utils

import "encoding/json"

// SafeJSONParse parses an incoming event payload without panicking on
// malformed input.
func SafeJSONParse(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
