package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// fieldMaps caches JSON tag -> struct field index per record type.
var fieldMaps sync.Map // map[reflect.Type]map[string]int

func jsonFieldMap(t reflect.Type) map[string]int {
	if cached, ok := fieldMaps.Load(t); ok {
		return cached.(map[string]int)
	}
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		m[strings.Split(tag, ",")[0]] = i
	}
	fieldMaps.Store(t, m)
	return m
}

// UnmarshalJSON accepts both native and string-encoded values. Spreadsheet
// exports and some scrapers quote every number ("kills": "7").
func (r *PlayerGameRecord) UnmarshalJSON(data []byte) error {
	type alias PlayerGameRecord
	return flexUnmarshal(data, (*alias)(r))
}

func (s *TimelineSnapshot10) UnmarshalJSON(data []byte) error {
	type alias TimelineSnapshot10
	return flexUnmarshal(data, (*alias)(s))
}

// flexUnmarshal decodes into dst (a pointer to a struct without a custom
// unmarshaler), coercing quoted scalars field by field when the fast path fails.
func flexUnmarshal(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err == nil {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	v := reflect.ValueOf(dst).Elem()
	fieldMap := jsonFieldMap(v.Type())

	for key, rawVal := range raw {
		idx, ok := fieldMap[key]
		if !ok {
			continue
		}
		fv := v.Field(idx)
		if !fv.CanSet() {
			continue
		}

		ptr := reflect.New(fv.Type())
		if err := json.Unmarshal(rawVal, ptr.Interface()); err == nil {
			fv.Set(ptr.Elem())
			continue
		}

		if len(rawVal) > 1 && rawVal[0] == '"' {
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil || s == "" {
				continue
			}
			if err := coerceStringToField(fv, s); err != nil {
				return fmt.Errorf("flex unmarshal %s: %w", key, err)
			}
		}
	}
	return nil
}

// coerceStringToField converts s to the field's native type. Pointer fields
// (optional counts) are allocated on demand.
func coerceStringToField(fv reflect.Value, s string) error {
	if fv.Kind() == reflect.Pointer {
		elem := reflect.New(fv.Type().Elem())
		if err := coerceStringToField(elem.Elem(), s); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}
	switch fv.Kind() {
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// "28.0" style values are truncated
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		fv.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.String:
		fv.SetString(s)
	}
	return nil
}
