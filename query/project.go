package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Project shapes JSON representation of v (a struct or a slice of structs)
// according to the requested fields, so typed models don't leak fields
// that were projected out. "id" is always kept.
func (r *Request) Project(v interface{}) (interface{}, error) {
	if r == nil || (len(r.include) == 0 && len(r.exclude) == 0) {
		return v, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("can't marshal projection: %w", err)
	}

	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var items []map[string]json.RawMessage
		if err = json.Unmarshal(b, &items); err != nil {
			return nil, fmt.Errorf("can't unmarshal projection: %w", err)
		}
		for _, item := range items {
			r.shape(item)
		}
		return items, nil
	}

	var item map[string]json.RawMessage
	if err = json.Unmarshal(b, &item); err != nil {
		return nil, fmt.Errorf("can't unmarshal projection: %w", err)
	}
	r.shape(item)

	return item, nil
}

func (r *Request) shape(item map[string]json.RawMessage) {
	if len(r.include) > 0 {
		keep := map[string]struct{}{"id": {}}
		for _, name := range r.include {
			keep[topLevel(name)] = struct{}{}
		}
		for k := range item {
			if _, ok := keep[k]; !ok {
				delete(item, k)
			}
		}
		return
	}

	for _, name := range r.exclude {
		if name == "_id" || name == "id" || strings.Contains(name, ".") {
			continue
		}
		delete(item, name)
	}
}

func topLevel(name string) string {
	if name == "_id" {
		return "id"
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
