package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var errInvalidJSON = errors.New("invalid JSON")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidJSON, err)
	}
	return nil
}

// looseString accepts a JSON string or number; numbers keep their decimal
// text. Null leaves it unset.
type looseString struct {
	value *string
}

func (l *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		l.value = nil
		return nil
	}
	switch b := data[0]; {
	case b == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		l.value = &s
	case b == '-' || (b >= '0' && b <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		s := n.String()
		l.value = &s
	default:
		return errors.New("expected a string or number")
	}
	return nil
}

// looseInt accepts a JSON integer or a string holding one.
type looseInt struct {
	value int64
	set   bool
}

func (l *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = looseInt{}
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
	}
	v, err := parseID(raw)
	if err != nil {
		return err
	}
	*l = looseInt{value: v, set: true}
	return nil
}

func (l looseInt) or(def int64) int64 {
	if !l.set {
		return def
	}
	return l.value
}

func parseID(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id %q: %w", raw, err)
	}
	return v, nil
}
