package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/and161185/totp-keeper/internal/errs"
	"github.com/and161185/totp-keeper/internal/limiter"
	"github.com/and161185/totp-keeper/internal/model"
	"github.com/and161185/totp-keeper/internal/otp"
	"github.com/and161185/totp-keeper/internal/qrcode"
	"github.com/and161185/totp-keeper/internal/repository"
)

// SecretCipher encrypts TOTP secrets at rest.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// KeyGenerator produces fresh TOTP secrets.
type KeyGenerator interface {
	Generate(account string) (model.TOTPKey, error)
}

// CodeVerifier checks one-time codes against a plaintext secret.
type CodeVerifier interface {
	Verify(secret, code string, at time.Time) (bool, error)
}

// MFAService manages the TOTP lifecycle of an account.
type MFAService interface {
	// GetQRCode generates a new secret for the account and renders its provisioning QR code.
	// Nothing is stored.
	GetQRCode(ctx context.Context, userID uuid.UUID) (model.TOTPKey, error)
	// VerifyTOTP checks code against a client-held secret.
	VerifyTOTP(ctx context.Context, by model.Originator, code, secret string) error
	// EnableTOTP stores secret encrypted and enables TOTP for the originator's account,
	// recording an account-update event in the same transaction.
	EnableTOTP(ctx context.Context, by model.Originator, secret string) error
	// CheckCode verifies code against the stored secret of an enrolled account.
	CheckCode(u *model.User, code string) error
}

// watchedFields are the account columns diffed into account-update metadata.
var watchedFields = []string{model.FieldTOTPEnabled, model.FieldTOTPSecret}

type MFAServiceImpl struct {
	users    repository.UserRepository
	events   repository.EventRepository
	txm      repository.TxManager
	cipher   SecretCipher
	keys     KeyGenerator
	verifier CodeVerifier
	lim      limiter.Limiter
	log      *zap.Logger
	now      func() time.Time
	qrSize   int
}

// MFADeps bundles the collaborators of MFAServiceImpl.
type MFADeps struct {
	Users    repository.UserRepository
	Events   repository.EventRepository
	Tx       repository.TxManager
	Cipher   SecretCipher
	Keys     KeyGenerator
	Verifier CodeVerifier
	Limiter  limiter.Limiter
	Logger   *zap.Logger
}

// NewMFAService constructs MFAService with required dependencies.
func NewMFAService(d MFADeps) *MFAServiceImpl {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &MFAServiceImpl{
		users:    d.Users,
		events:   d.Events,
		txm:      d.Tx,
		cipher:   d.Cipher,
		keys:     d.Keys,
		verifier: d.Verifier,
		lim:      d.Limiter,
		log:      log,
		now:      time.Now,
		qrSize:   qrcode.DefaultSize,
	}
}

// GetQRCode returns a fresh secret with its otpauth URI and PNG data URI.
func (s *MFAServiceImpl) GetQRCode(ctx context.Context, userID uuid.UUID) (model.TOTPKey, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.TOTPKey{}, err
	}
	key, err := s.keys.Generate(u.Username)
	if err != nil {
		return model.TOTPKey{}, err
	}
	key.QRCodeURI, err = qrcode.DataURI(key.URI, s.qrSize)
	if err != nil {
		return model.TOTPKey{}, err
	}
	return key, nil
}

// VerifyTOTP checks a code against a client-held secret, rate limited per (account, ip).
func (s *MFAServiceImpl) VerifyTOTP(ctx context.Context, by model.Originator, code, secret string) error {
	subject := limiter.ScopeTOTP + by.UserID.String()
	ipHash := limiter.HashIP(by.IP)

	allowed, _, err := s.lim.Allow(ctx, subject, ipHash)
	if err != nil {
		return err
	}
	if !allowed {
		return errs.ErrRateLimited
	}

	ok, err := s.verifier.Verify(secret, code, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return s.codeFailure(ctx, subject, ipHash)
	}
	_ = s.lim.Success(ctx, subject, ipHash)
	return nil
}

// codeFailure records a wrong code and reports ErrRateLimited once the pair is blocked.
func (s *MFAServiceImpl) codeFailure(ctx context.Context, subject string, ipHash []byte) error {
	if blocked, _, ferr := s.lim.Failure(ctx, subject, ipHash); ferr == nil && blocked {
		return errs.ErrRateLimited
	}
	return errs.ErrInvalidCode
}

// CheckCode decrypts the stored secret of u and verifies code against it.
func (s *MFAServiceImpl) CheckCode(u *model.User, code string) error {
	if !u.TOTPEnabled || u.TOTPSecret == "" {
		return errs.ErrNotFound
	}
	secret, err := s.cipher.Decrypt(u.TOTPSecret)
	if err != nil {
		return fmt.Errorf("decrypt totp secret: %w", err)
	}
	ok, err := s.verifier.Verify(secret, code, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrInvalidCode
	}
	return nil
}

// EnableTOTP moves the originator's account from TOTP disabled to enabled.
func (s *MFAServiceImpl) EnableTOTP(ctx context.Context, by model.Originator, secret string) error {
	u, err := s.users.GetByID(ctx, by.UserID)
	if err != nil {
		return err
	}
	if u.TOTPEnabled {
		return errs.ErrDuplicateEnrollment
	}

	if err := otp.CheckSecret(secret); err != nil {
		return err
	}
	blob, err := s.cipher.Encrypt(secret)
	if err != nil {
		return err
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Release(ctx)

	ev := &model.Event{
		Type:             model.EventTypeAccountUpdate,
		OriginatorUserID: by.UserID,
		OriginatorIP:     by.IP,
	}
	if err := s.events.Create(ctx, tx, ev); err != nil {
		return err
	}

	updated, err := s.users.EnableTOTP(ctx, tx, u.ID, blob)
	if err != nil {
		return err
	}

	md := model.AccountUpdateMetadata{ID: u.ID, UpdatedFields: changedFields(u, updated)}
	if err := s.events.UpdateMetadata(ctx, tx, ev.ID, md.Map()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.log.Info("totp enabled", zap.String("user_id", u.ID.String()), zap.String("event_id", ev.ID.String()))
	return nil
}

func changedFields(before, after *model.User) []string {
	b, a := before.FieldValues(), after.FieldValues()
	return lo.Filter(watchedFields, func(f string, _ int) bool {
		return b[f] != a[f]
	})
}
