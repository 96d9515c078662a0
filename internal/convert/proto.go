// Package convert maps between domain values and the Struct-encoded wire messages.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/and161185/totp-keeper/api/totpkeeper/v1"
	"github.com/and161185/totp-keeper/internal/model"
)

// ToStruct encodes a message struct as a google.protobuf.Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// FromStruct decodes a google.protobuf.Struct into dst. Unknown fields are rejected.
func FromStruct(s *structpb.Struct, dst any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	return nil
}

// ToLoginResponse builds the login reply.
func ToLoginResponse(tok model.Tokens, u model.User) pb.LoginResponse {
	return pb.LoginResponse{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.ExpiresAt.UTC().Format(time.RFC3339),
		UserID:      u.ID.String(),
		TOTPEnabled: u.TOTPEnabled,
	}
}

// ToQRCodeResponse builds the provisioning reply.
func ToQRCodeResponse(k model.TOTPKey) pb.QRCodeResponse {
	return pb.QRCodeResponse{
		Secret:     k.Secret,
		OTPAuthURI: k.URI,
		QRCodeURI:  k.QRCodeURI,
	}
}
