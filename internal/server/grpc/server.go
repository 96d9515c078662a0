// Package grpcserver exposes the TOTPKeeper gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/and161185/totp-keeper/api/totpkeeper/v1"
	"github.com/and161185/totp-keeper/internal/convert"
	"github.com/and161185/totp-keeper/internal/errs"
	"github.com/and161185/totp-keeper/internal/model"
	"github.com/and161185/totp-keeper/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	auth     service.AuthService
	mfa      service.MFAService
	validate *validator.Validate
	log      *zap.Logger
}

var _ pb.TOTPKeeperServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, mfa service.MFAService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, mfa: mfa, validate: newValidator(), log: log}
}

// --- Auth ---

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.RegisterRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	userID, err := s.auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}
	return s.encode(pb.RegisterResponse{UserID: userID})
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return model.NormalizeIP(p.Addr.String())
	}
	return ""
}

// Login authenticates a user and returns an access token.
func (s *Server) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pb.LoginRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	tok, u, err := s.auth.LoginWithIP(ctx, req.Username, req.Password, req.TOTPCode, remoteIP(ctx))
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}
	return s.encode(convert.ToLoginResponse(tok, u))
}

// --- TOTP ---

// GetQRCode returns a fresh secret and its provisioning QR code for the caller.
func (s *Server) GetQRCode(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, ok := UserIDFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	key, err := s.mfa.GetQRCode(ctx, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "qrcode", err)
	}
	return s.encode(convert.ToQRCodeResponse(key))
}

// VerifyTOTP checks a code against a secret the caller holds.
func (s *Server) VerifyTOTP(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	by, ok := OriginatorFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	var req pb.VerifyTOTPRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	if err := s.mfa.VerifyTOTP(ctx, by, req.TOTPToken, req.TOTPSecret); err != nil {
		return nil, s.toStatus(ctx, "verify totp", err)
	}
	return &emptypb.Empty{}, nil
}

// EnableTOTP enrolls the caller's account with the submitted secret.
func (s *Server) EnableTOTP(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	by, ok := OriginatorFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	var req pb.EnableTOTPRequest
	if err := s.decode(in, &req); err != nil {
		return nil, err
	}
	if err := s.mfa.EnableTOTP(ctx, by, req.TOTPSecret); err != nil {
		return nil, s.toStatus(ctx, "enable totp", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) encode(v any) (*structpb.Struct, error) {
	out, err := convert.ToStruct(v)
	if err != nil {
		s.log.Error("encode response", zap.Error(err))
		return nil, status.Error(codes.Internal, "internal")
	}
	return out, nil
}

// toStatus maps domain errors to gRPC status codes. Unmapped errors are logged and hidden.
func (s *Server) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrDuplicateEnrollment):
		return status.Error(codes.FailedPrecondition, "totp already enabled")
	case errors.Is(err, errs.ErrInvalidCode):
		return status.Error(codes.PermissionDenied, "invalid totp code")
	case errors.Is(err, errs.ErrInvalidSecret):
		return status.Error(codes.InvalidArgument, "invalid totp secret")
	case errors.Is(err, errs.ErrMalformedInput):
		return status.Error(codes.InvalidArgument, "malformed input")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrMFARequired):
		return status.Error(codes.Unauthenticated, "totp code required")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	if id, ok := UserIDFromCtx(ctx); ok {
		fields = append(fields, zap.String("user_id", id.String()))
	}
	s.log.Error("request failed", fields...)
	return status.Error(codes.Internal, "internal")
}

// userIDFromToken: extract "authorization: Bearer <JWT>", verify HS256, return sub as UUID.
func userIDFromToken(ctx context.Context, signKey []byte) (uuid.UUID, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return uuid.Nil, errors.New("token expired or not valid yet")
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.New("bad subject")
	}
	return id, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
