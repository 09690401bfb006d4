package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// unwrapCollection decodes list endpoints that answer either with a bare JSON array
// or with a page object carrying the items under "content".
func unwrapCollection[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		return items, nil
	}

	var page struct {
		Content []T `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode collection page: %w", err)
	}
	if page.Content == nil {
		return []T{}, nil
	}
	return page.Content, nil
}
