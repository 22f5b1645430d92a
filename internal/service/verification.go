package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/pkg/notify"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const maxVerifyAttempts = 5

// CodeRepository stores hashed verification codes.
type CodeRepository interface {
	Save(ctx context.Context, channel, destination string, code domain.StoredCode, ttl time.Duration) error
	Get(ctx context.Context, channel, destination string) (*domain.StoredCode, error)
	// IncrAttempts atomically counts one attempt and returns the new total,
	// or a negative number when the code no longer exists.
	IncrAttempts(ctx context.Context, channel, destination string) (int64, error)
	Delete(ctx context.Context, channel, destination string) error
}

// VerificationService issues and checks one-time codes over SMS or e-mail.
type VerificationService struct {
	codes    CodeRepository
	senders  map[string]notify.Sender
	validate *validator.Validate
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewVerificationService creates a new VerificationService. senders is keyed
// by channel (domain.ChannelSMS, domain.ChannelEmail).
func NewVerificationService(codes CodeRepository, senders map[string]notify.Sender, log logrus.FieldLogger) *VerificationService {
	return &VerificationService{
		codes:    codes,
		senders:  senders,
		validate: validator.New(),
		log:      log.WithField("component", "verification"),
		now:      time.Now,
	}
}

// Send generates a code, stores its hash and delivers it.
func (s *VerificationService) Send(ctx context.Context, req domain.SendCodeRequest) (*domain.CodeSent, error) {
	dest, err := s.checkRequest(req, req.Channel, req.Destination)
	if err != nil {
		return nil, err
	}
	sender, ok := s.senders[req.Channel]
	if !ok {
		return nil, domain.ErrBadRequest(domain.CodeInvalidData, "Canal de verificação indisponível")
	}

	code, err := newCode()
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}

	ttl := domain.CodeTTL(req.Channel)
	if err := s.codes.Save(ctx, req.Channel, dest, domain.StoredCode{Hash: string(hash)}, ttl); err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}

	minutes := int(ttl / time.Minute)
	msgID, err := sender.Send(ctx, notify.Message{
		To:      dest,
		Subject: "Código de verificação AgroSync",
		Body:    fmt.Sprintf("Seu código de verificação AgroSync é: %s. Válido por %d minutos.", code, minutes),
	})
	if err != nil {
		s.log.WithError(err).WithField("channel", req.Channel).Error("failed to deliver verification code")
		if delErr := s.codes.Delete(ctx, req.Channel, dest); delErr != nil {
			s.log.WithError(delErr).Warn("failed to discard undelivered code")
		}
		return nil, domain.ErrUpstream(domain.CodeDeliveryError, "Erro ao enviar código de verificação", err)
	}

	return &domain.CodeSent{
		Destination: domain.MaskDestination(req.Channel, dest),
		MessageID:   msgID,
		ExpiresIn:   int(ttl / time.Second),
	}, nil
}

// Verify checks a submitted code. A correct code is consumed.
func (s *VerificationService) Verify(ctx context.Context, req domain.VerifyCodeRequest) (*domain.CodeVerified, error) {
	dest, err := s.checkRequest(req, req.Channel, req.Destination)
	if err != nil {
		return nil, err
	}

	// Counted before comparing: at most maxVerifyAttempts guesses are checked.
	attempts, err := s.codes.IncrAttempts(ctx, req.Channel, dest)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	if attempts < 0 {
		return nil, errCodeExpired()
	}
	if attempts > maxVerifyAttempts {
		return nil, s.tooManyAttempts(ctx, req.Channel, dest)
	}

	stored, err := s.codes.Get(ctx, req.Channel, dest)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	if stored == nil {
		return nil, errCodeExpired()
	}

	if bcrypt.CompareHashAndPassword([]byte(stored.Hash), []byte(req.Code)) != nil {
		if attempts >= maxVerifyAttempts {
			return nil, s.tooManyAttempts(ctx, req.Channel, dest)
		}
		return nil, domain.ErrBadRequest(domain.CodeInvalidCode, "Código inválido")
	}

	if err := s.codes.Delete(ctx, req.Channel, dest); err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	return &domain.CodeVerified{
		Destination: domain.MaskDestination(req.Channel, dest),
		Verified:    true,
		VerifiedAt:  s.now(),
	}, nil
}

func errCodeExpired() *domain.AppError {
	return domain.ErrBadRequest(domain.CodeCodeExpired, "Código expirado ou não encontrado")
}

func (s *VerificationService) tooManyAttempts(ctx context.Context, channel, dest string) error {
	if err := s.codes.Delete(ctx, channel, dest); err != nil {
		s.log.WithError(err).Warn("failed to discard exhausted code")
	}
	return domain.ErrTooManyRequests(domain.CodeTooManyAttempts, "Muitas tentativas. Solicite um novo código.")
}

// checkRequest validates the body and the destination format for its channel,
// returning the normalized destination.
func (s *VerificationService) checkRequest(req interface{}, channel, destination string) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", domain.ErrBadRequest(domain.CodeInvalidData, formatValidationErrors(err))
	}

	dest := strings.TrimSpace(destination)
	rule := "e164"
	if channel == domain.ChannelEmail {
		dest = strings.ToLower(dest)
		rule = "email"
	}
	if err := s.validate.Var(dest, rule); err != nil {
		return "", domain.ErrBadRequest(domain.CodeInvalidData, "Destino inválido para o canal "+channel)
	}
	return dest, nil
}

// newCode returns a uniformly random 6-digit code.
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func formatValidationErrors(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "Campos inválidos: " + strings.Join(fields, ", ")
}
