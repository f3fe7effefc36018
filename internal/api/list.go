package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// List is a collection response normalized from either a bare JSON array or
// a paginated {"count", "next", "previous", "results"} envelope.
type List[T any] struct {
	Items []T
	Count int
	Next  string
}

type envelope[T any] struct {
	Count   *int    `json:"count"`
	Next    *string `json:"next"`
	Results *[]T    `json:"results"`
}

func decodeList[T any](body []byte) (List[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return List[T]{Items: []T{}}, nil
	}
	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return List[T]{}, fmt.Errorf("decoding list: %w", err)
		}
		return List[T]{Items: items, Count: len(items)}, nil
	case '{':
		var env envelope[T]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return List[T]{}, fmt.Errorf("decoding paginated list: %w", err)
		}
		if env.Results == nil {
			return List[T]{}, fmt.Errorf("decoding paginated list: no results field")
		}
		list := List[T]{Items: *env.Results, Count: len(*env.Results)}
		if env.Count != nil {
			list.Count = *env.Count
		}
		if env.Next != nil {
			list.Next = *env.Next
		}
		if list.Items == nil {
			list.Items = []T{}
		}
		return list, nil
	}
	return List[T]{}, fmt.Errorf("decoding list: unexpected JSON starting with %q", trimmed[0])
}
