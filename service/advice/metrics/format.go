package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Record is the persisted form of a stopped measurement.
type Record struct {
	Identifier string            `json:"identifier" yaml:"identifier"`
	Tags       map[string]string `json:"tags" yaml:"tags"`
	Start      time.Time         `json:"start" yaml:"start"`
	End        time.Time         `json:"end" yaml:"end"`
	// Duration in nanoseconds.
	Duration int64 `json:"duration" yaml:"duration"`
}

// Format encodes records into an attachment file.
type Format interface {
	Name() string
	Ext() string
	Encode(w io.Writer, record *Record) error
	Decode(r io.Reader, record *Record) error
}

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatLine = "line"
)

// LookupFormat returns a format by name; empty name selects JSON.
func LookupFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", FormatJSON:
		return JSON(), nil
	case FormatYAML, "yml":
		return YAML(), nil
	case FormatLine, "txt":
		return Line(), nil
	}
	return nil, fmt.Errorf("unsupported metrics format: %v", name)
}

type jsonFormat struct{}

// JSON returns the structured JSON record format.
func JSON() Format { return jsonFormat{} }

func (jsonFormat) Name() string { return FormatJSON }

func (jsonFormat) Ext() string { return "json" }

func (jsonFormat) Encode(w io.Writer, record *Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}

func (jsonFormat) Decode(r io.Reader, record *Record) error {
	return json.NewDecoder(r).Decode(record)
}

type yamlFormat struct{}

// YAML returns the structured YAML record format.
func YAML() Format { return yamlFormat{} }

func (yamlFormat) Name() string { return FormatYAML }

func (yamlFormat) Ext() string { return "yaml" }

func (yamlFormat) Encode(w io.Writer, record *Record) error {
	encoder := yaml.NewEncoder(w)
	if err := encoder.Encode(record); err != nil {
		return err
	}
	return encoder.Close()
}

func (yamlFormat) Decode(r io.Reader, record *Record) error {
	return yaml.NewDecoder(r).Decode(record)
}

const tagPrefix = "tag."

type lineFormat struct{}

// Line returns a single line key="value" format; tags are written as
// tag.<name>="value" in key order.
func Line() Format { return lineFormat{} }

func (lineFormat) Name() string { return FormatLine }

func (lineFormat) Ext() string { return "txt" }

func (lineFormat) Encode(w io.Writer, record *Record) error {
	builder := new(strings.Builder)
	pair := func(key, value string) {
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(strconv.Quote(value))
	}
	pair("identifier", record.Identifier)
	pair("start", record.Start.Format(time.RFC3339Nano))
	pair("end", record.End.Format(time.RFC3339Nano))
	pair("duration", strconv.FormatInt(record.Duration, 10))
	keys := make([]string, 0, len(record.Tags))
	for k := range record.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pair(tagPrefix+k, record.Tags[k])
	}
	builder.WriteByte('\n')
	_, err := io.WriteString(w, builder.String())
	return err
}

func (lineFormat) Decode(r io.Reader, record *Record) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	line = strings.TrimSpace(line)
	record.Tags = map[string]string{}
	for line != "" {
		index := strings.IndexByte(line, '=')
		if index <= 0 {
			return fmt.Errorf("malformed metrics line near: %q", line)
		}
		key := line[:index]
		quoted, err := strconv.QuotedPrefix(line[index+1:])
		if err != nil {
			return fmt.Errorf("malformed value of %v: %w", key, err)
		}
		value, _ := strconv.Unquote(quoted)
		line = strings.TrimLeft(line[index+1+len(quoted):], " ")
		if err = record.set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) set(key, value string) error {
	var err error
	switch key {
	case "identifier":
		r.Identifier = value
	case "start":
		r.Start, err = time.Parse(time.RFC3339Nano, value)
	case "end":
		r.End, err = time.Parse(time.RFC3339Nano, value)
	case "duration":
		r.Duration, err = strconv.ParseInt(value, 10, 64)
	default:
		if name, ok := strings.CutPrefix(key, tagPrefix); ok {
			r.Tags[name] = value
		}
	}
	if err != nil {
		return fmt.Errorf("invalid %v: %w", key, err)
	}
	return nil
}
