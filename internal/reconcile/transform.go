package reconcile

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Base64Fields returns a Transform storing the base64 encoding of each
// source field under its target field. The encoder always receives the raw
// source value.
func Base64Fields(fields map[string]string) func(Values) (Values, error) {
	return func(in Values) (Values, error) {
		out := in.Clone()
		for src, dst := range fields {
			raw, ok := in[src]
			if !ok || raw == nil {
				out[dst] = nil
				continue
			}
			text, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("field %s: expected text, got %T", src, raw)
			}
			out[dst] = base64.StdEncoding.EncodeToString([]byte(text))
		}
		return out, nil
	}
}

// StaticSource wraps locally computed values as a Source.
func StaticSource(name string, fn func() (Values, error)) Source {
	return Source{
		Name:  name,
		Local: true,
		Fetch: func(_ context.Context) (Values, error) {
			return fn()
		},
	}
}
