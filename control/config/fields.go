package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field describes one configuration entry as listed by `benchctl config list`
type Field struct {
	Name     string
	Type     string
	Required bool
	Value    string
}

// field looks a struct field up by its config key
func (cfg *BenchctlConfig) field(name string) (reflect.Value, bool) {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if key(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func key(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	return name
}

// Set parses value into the entry called name. Lists are comma separated and operations
// are given as operation:ratio pairs; everything else is read as a YAML scalar.
func (cfg *BenchctlConfig) Set(name, value string) error {
	fv, ok := cfg.field(name)
	if !ok {
		return fmt.Errorf("field %s not found", name)
	}
	switch fv.Interface().(type) {
	case []OperationRatio:
		ops, err := ParseOperations(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		fv.Set(reflect.ValueOf(ops))
	case []string:
		items := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		fv.Set(reflect.ValueOf(items))
	case string:
		fv.SetString(value)
	default:
		if err := yaml.Unmarshal([]byte(value), fv.Addr().Interface()); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}
	return nil
}

// Get formats the entry called name the way Set accepts it
func (cfg *BenchctlConfig) Get(name string) (string, error) {
	fv, ok := cfg.field(name)
	if !ok {
		return "", fmt.Errorf("field %s not found", name)
	}
	return format(fv), nil
}

// Fields lists every entry in declaration order
func (cfg *BenchctlConfig) Fields() []Field {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fields = append(fields, Field{
			Name:     key(f),
			Type:     f.Type.String(),
			Required: strings.Contains(f.Tag.Get("validate"), "required"),
			Value:    format(v.Field(i)),
		})
	}
	return fields
}

func format(fv reflect.Value) string {
	switch val := fv.Interface().(type) {
	case []OperationRatio:
		return FormatOperations(val)
	case []string:
		return strings.Join(val, ",")
	default:
		return fmt.Sprint(val)
	}
}

// ParseOperations parses "get:0.5,put:0.3" into operation ratios
func ParseOperations(value string) ([]OperationRatio, error) {
	var ops []OperationRatio
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, ratio, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%q is not operation:ratio", pair)
		}
		r, err := strconv.ParseFloat(strings.TrimSpace(ratio), 64)
		if err != nil {
			return nil, fmt.Errorf("ratio of %s: %w", name, err)
		}
		ops = append(ops, OperationRatio{Operation: strings.TrimSpace(name), Ratio: r})
	}
	return ops, nil
}

func FormatOperations(ops []OperationRatio) string {
	pairs := make([]string, len(ops))
	for i, op := range ops {
		pairs[i] = op.Operation + ":" + strconv.FormatFloat(op.Ratio, 'g', -1, 64)
	}
	return strings.Join(pairs, ",")
}
