package service

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/chain"
	"github.com/Agentic-Trust-Layer/agentic-trust-sub003/internal/domain"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Validator checks service inputs against their validate tags and reports
// failures as 400 APIErrors listing every rejected field.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator with the registry-specific rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"nonzero_addr": func(fl validator.FieldLevel) bool {
			return !chain.IsZeroAddress(fl.Field().String())
		},
		"bytes32": func(fl validator.FieldLevel) bool {
			return chain.IsBytes32(fl.Field().String())
		},
		"bytes4": func(fl validator.FieldLevel) bool {
			b, err := chain.DecodeHex(fl.Field().String())
			return err == nil && len(b) == 4
		},
		"hexbytes": func(fl validator.FieldLevel) bool {
			_, err := chain.DecodeHex(fl.Field().String())
			return err == nil
		},
		"endpoint_uri": func(fl validator.FieldLevel) bool {
			u, err := url.Parse(fl.Field().String())
			return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}

	return &Validator{validate: v}
}

// Struct validates s. Rule failures come back as *domain.APIError with a
// []FieldError in Details.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return domain.BadRequest(describe(fields[0]), fields)
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe FieldError) string {
	switch fe.Rule {
	case "required":
		return fe.Field + " is required"
	case "eth_addr":
		return fe.Field + " must be a 0x-prefixed 20-byte address"
	case "nonzero_addr":
		return fe.Field + " must not be the zero address"
	case "bytes32":
		return fe.Field + " must be a 0x-prefixed 32-byte hex string"
	case "bytes4":
		return fe.Field + " must be a 0x-prefixed 4-byte hex string"
	case "hexbytes":
		return fe.Field + " must be 0x-prefixed hex"
	case "url", "endpoint_uri":
		return fe.Field + " must be an absolute URI"
	case "oneof":
		return fe.Field + " must be one of: " + fe.Param
	case "min", "gte", "gt":
		return fe.Field + " is below the minimum of " + fe.Param
	case "max", "lte", "lt":
		return fe.Field + " exceeds the maximum of " + fe.Param
	default:
		return fe.Field + " is invalid"
	}
}

// parseDID turns a malformed did:8004 into a 400.
func parseDID(raw string) (chain.DID8004, error) {
	did, err := chain.ParseDID8004(raw)
	if err != nil {
		return chain.DID8004{}, domain.BadRequest(err.Error(), map[string]string{"did8004": raw})
	}
	return did, nil
}
