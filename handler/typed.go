package handler

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

// JSON wraps a typed function into a BytesHandler. The request is decoded
// from JSON and checked against its `validate` struct tags before fn runs;
// the response is encoded back to JSON.
//
// Usage:
//
//	type Greet struct {
//	    Name string `json:"name" validate:"required"`
//	}
//
//	h := handler.JSON(func(req Greet) (string, error) {
//	    return "hello " + req.Name, nil
//	})
func JSON[Req any, Resp any](fn func(Req) (Resp, error)) BytesHandler {
	return func(payload []byte) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request: %w", err)
		}

		if err := validateRequest(req); err != nil {
			return nil, err
		}

		resp, err := fn(req)
		if err != nil {
			return nil, err
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return out, nil
	}
}

func validateRequest(v any) error {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Schema returns the JSON schema (Draft 2020-12) of a typed request, so the
// host can learn what an export accepts.
func Schema[Req any]() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	var zero Req
	schema := reflector.Reflect(zero)

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}
