package qualys

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	gorilla "github.com/gorilla/schema"

	"github.com/tphakala/go-qualys/internal/schema"
)

// optionValidator checks client settings and typed service options. Field
// errors report the wire name from the schema tag.
var optionValidator = newOptionValidator()

func newOptionValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("schema"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Encoders for typed option structs, one per boolean wire style.
var (
	wordEncoder    = newParamEncoder(schema.BoolWord)
	numericEncoder = newParamEncoder(schema.BoolNumeric)
)

func newParamEncoder(style schema.BoolStyle) *gorilla.Encoder {
	enc := gorilla.NewEncoder()
	enc.RegisterEncoder(false, func(v reflect.Value) string {
		return boolWire(style, v.Bool())
	})
	return enc
}

// toParams validates a typed option struct and encodes it into call parameters.
// A nil pointer yields empty parameters.
func toParams(endpoint string, enc *gorilla.Encoder, opts any) (Params, error) {
	rv := reflect.ValueOf(opts)
	if opts == nil || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return Params{}, nil
	}
	if err := optionValidator.Struct(opts); err != nil {
		return nil, optionError(endpoint, err)
	}

	wire := make(map[string][]string)
	if err := enc.Encode(opts, wire); err != nil {
		return nil, fmt.Errorf("qualys: %s: encoding options: %w", endpoint, err)
	}

	params := make(Params, len(wire))
	for name, values := range wire {
		if len(values) == 1 {
			params[name] = values[0]
			continue
		}
		params[name] = values
	}
	return params, nil
}

// optionError reports the first failed option constraint as an InvalidParameterError.
func optionError(endpoint string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("qualys: %s: validating options: %w", endpoint, err)
	}
	fe := verrs[0]
	msg := "fails " + fe.Tag()
	if fe.Param() != "" {
		msg += "=" + fe.Param()
	}
	return &InvalidParameterError{
		ParamError: ParamError{Endpoint: endpoint, Param: fe.Field(), Message: msg},
		Value:      fe.Value(),
	}
}

// requireID rejects an empty path identifier before any request is built.
func requireID(endpoint, param, id string) error {
	if strings.TrimSpace(id) == "" {
		return &MissingPathParameterError{
			ParamError: ParamError{Endpoint: endpoint, Param: param, Message: "cannot be empty"},
		}
	}
	return nil
}
