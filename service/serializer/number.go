package serializer

import (
	"encoding/json"
	"reflect"
)

// normalize walks decoded data and replaces json.Number held in untyped
// values with int (int64 when out of int range) for integral numbers and
// float64 otherwise, matching what the YAML decoder produces.
func normalize(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			normalize(v.Elem())
		}
	case reflect.Interface:
		if !v.IsNil() && v.CanSet() {
			v.Set(reflect.ValueOf(number(v.Interface())))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				normalize(v.Field(i))
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			normalize(v.Index(i))
		}
	case reflect.Map:
		if v.IsNil() {
			return
		}
		iter := v.MapRange()
		for iter.Next() {
			value := iter.Value()
			switch value.Kind() {
			case reflect.Interface:
				if !value.IsNil() {
					v.SetMapIndex(iter.Key(), reflect.ValueOf(number(value.Interface())))
				}
			case reflect.Map, reflect.Slice, reflect.Ptr:
				normalize(value)
			}
		}
	}
}

func number(value interface{}) interface{} {
	switch actual := value.(type) {
	case json.Number:
		if i, err := actual.Int64(); err == nil {
			if i == int64(int(i)) {
				return int(i)
			}
			return i
		}
		if f, err := actual.Float64(); err == nil {
			return f
		}
		return actual.String()
	case map[string]interface{}:
		for k, v := range actual {
			if v != nil {
				actual[k] = number(v)
			}
		}
	case []interface{}:
		for i, v := range actual {
			if v != nil {
				actual[i] = number(v)
			}
		}
	}
	return value
}
