package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Options is a free-form table of backend settings taken from the config file.
type Options map[string]any

// Merge returns a copy of o with the entries of other laid on top.
func (o Options) Merge(other Options) Options {
	out := make(Options, len(o)+len(other))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Duration accepts Go duration strings ("10s") or a number of seconds.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	switch v := o[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int64:
		return time.Duration(v) * time.Second
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

// QueryValues flattens the options into query-string parameters. Lists are
// joined with commas.
func (o Options) QueryValues() map[string]string {
	out := make(map[string]string, len(o))
	for k, v := range o {
		switch vv := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(vv))
			for _, item := range vv {
				parts = append(parts, fmt.Sprint(item))
			}
			out[k] = strings.Join(parts, ",")
		case []string:
			out[k] = strings.Join(vv, ",")
		default:
			out[k] = fmt.Sprint(vv)
		}
	}
	return out
}
