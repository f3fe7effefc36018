package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a backend record. The API emits primary keys as JSON numbers
// while order payloads built from form values carry them as strings; ID
// accepts both and writes numeric values back as numbers.
type ID string

// Int64 returns the numeric value of the ID, or false if it is not numeric.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, ok := id.Int64(); ok {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*id = ""
	case strings.HasPrefix(s, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*id = ID(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("decoding id %s: %w", s, err)
		}
		*id = ID(n.String())
	}
	return nil
}

// UnmarshalTOML lets draft files write ids as either integers or strings.
func (id *ID) UnmarshalTOML(v interface{}) error {
	switch x := v.(type) {
	case string:
		*id = ID(x)
	case int64:
		*id = ID(strconv.FormatInt(x, 10))
	default:
		return fmt.Errorf("unsupported id value %v (%T)", v, v)
	}
	return nil
}
