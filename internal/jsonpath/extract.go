package jsonpath

import (
	"fmt"
)

// Extract walks a decoded JSON document (maps, slices, and scalars as
// produced by a JSON unmarshal into `any`) and returns the value addressed
// by the path. A missing key, out-of-range index, or traversal into a
// non-container is reported as an error naming the failing segment; it is
// never silently coerced into a zero value.
func (p *Path) Extract(doc any) (any, error) {
	if p == nil || len(p.Segments) == 0 {
		return nil, fmt.Errorf("cannot extract with an empty path")
	}

	current := doc
	for _, segment := range p.Segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("segment %q: value is not a JSON object", segment.Name)
		}

		next, ok := obj[segment.Name]
		if !ok {
			return nil, fmt.Errorf("segment %q: key not present", segment.Name)
		}

		if segment.HasIndex() {
			arr, ok := next.([]any)
			if !ok {
				return nil, fmt.Errorf("segment %q: indexed but value is not a JSON array", segment.Name)
			}
			if segment.Index >= len(arr) {
				return nil, fmt.Errorf("segment %q: index %d out of range (len %d)", segment.Name, segment.Index, len(arr))
			}
			next = arr[segment.Index]
		}

		current = next
	}

	return current, nil
}

// ExtractNumber extracts the addressed value and asserts it is numeric.
// JSON numbers decode as float64, which is what condition evaluation needs.
func (p *Path) ExtractNumber(doc any) (float64, error) {
	v, err := p.Extract(doc)
	if err != nil {
		return 0, err
	}

	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("value at %q is %T, not a number", p.String(), v)
	}
	return f, nil
}
