package grpcserver

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/totp-keeper/internal/convert"
	"github.com/and161185/totp-keeper/internal/otp"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report wire names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("totp_secret", func(fl validator.FieldLevel) bool {
		return otp.CheckSecret(fl.Field().String()) == nil
	})
	return v
}

// decode unpacks and validates a request; failures are InvalidArgument.
func (s *Server) decode(in *structpb.Struct, dst any) error {
	if err := convert.FromStruct(in, dst); err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	if err := s.validate.Struct(dst); err != nil {
		return status.Error(codes.InvalidArgument, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid request"
	}
	fields := lo.Map(ve, func(fe validator.FieldError, _ int) string {
		return fe.Field() + ": " + fe.Tag()
	})
	return "invalid request: " + strings.Join(fields, ", ")
}
