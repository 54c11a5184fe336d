// Package serializer provides the pluggable payload encodings used to build and
// parse exchange files.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Serializer encodes and decodes payloads.
type Serializer interface {
	// Name identifies the serializer, e.g. when passed to a child process.
	Name() string
	// Ext is the file extension used for encoded payloads.
	Ext() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

const (
	NameJSON = "json"
	NameYAML = "yaml"
)

// Error reports a payload that could not be encoded or decoded.
type Error struct {
	Serializer string
	Op         string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v %v failed: %v", e.Serializer, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type jsonSerializer struct{}

func (jsonSerializer) Name() string { return NameJSON }

func (jsonSerializer) Ext() string { return "json" }

func (j jsonSerializer) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &Error{Serializer: j.Name(), Op: "marshal", Err: err}
	}
	return data, nil
}

func (j jsonSerializer) Unmarshal(data []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(v); err != nil {
		return &Error{Serializer: j.Name(), Op: "unmarshal", Err: err}
	}
	normalize(reflect.ValueOf(v))
	return nil
}

type yamlSerializer struct{}

func (yamlSerializer) Name() string { return NameYAML }

func (yamlSerializer) Ext() string { return "yaml" }

func (y yamlSerializer) Marshal(v interface{}) (data []byte, err error) {
	// yaml.v3 panics on unsupported values (e.g. channels)
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Serializer: y.Name(), Op: "marshal", Err: fmt.Errorf("%v", r)}
		}
	}()
	if data, err = yaml.Marshal(v); err != nil {
		return nil, &Error{Serializer: y.Name(), Op: "marshal", Err: err}
	}
	return data, nil
}

func (y yamlSerializer) Unmarshal(data []byte, v interface{}) error {
	if err := yaml.Unmarshal(data, v); err != nil {
		return &Error{Serializer: y.Name(), Op: "unmarshal", Err: err}
	}
	return nil
}

// JSON returns the JSON serializer. Untyped integral numbers decode as int,
// as with YAML, instead of float64.
func JSON() Serializer { return jsonSerializer{} }

// YAML returns the YAML serializer.
func YAML() Serializer { return yamlSerializer{} }

// Lookup returns a serializer by name; empty name selects JSON.
func Lookup(name string) (Serializer, error) {
	switch strings.ToLower(name) {
	case "", NameJSON:
		return JSON(), nil
	case NameYAML, "yml":
		return YAML(), nil
	}
	return nil, fmt.Errorf("unsupported serializer: %v", name)
}
