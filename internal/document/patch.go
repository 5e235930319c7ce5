package document

import (
	"encoding/json"
	"fmt"
)

// MergePatch merges fields into a stored JSON object and returns the new
// encoding. A nil field value clears the key. Providers share this so a
// partial update never rewrites fields the caller did not name.
func MergePatch(data []byte, fields map[string]any) ([]byte, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("patch target is not a JSON object: %w", err)
	}
	for k, v := range fields {
		if v == nil {
			delete(obj, k)
			continue
		}
		obj[k] = v
	}
	return json.Marshal(obj)
}
