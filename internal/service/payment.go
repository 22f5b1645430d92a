package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/repository"
	"github.com/agroisync/backend/pkg/chain"
	"github.com/agroisync/backend/pkg/payment"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// amountTolerancePercent is how far an on-chain value may deviate from the plan price.
const amountTolerancePercent = 10

// TxClaimer guards a transaction hash while a submission is being verified.
type TxClaimer interface {
	Acquire(ctx context.Context, hash, owner string) (bool, error)
	Release(ctx context.Context, hash, owner string) error
}

// PaymentConfig holds the settings PaymentService needs.
type PaymentConfig struct {
	SiteURL          string
	AdminWallet      string
	MinConfirmations uint64
}

// PaymentService sells plans by card (hosted checkout) and by on-chain transfer.
type PaymentService struct {
	store   repository.Store
	gateway payment.CheckoutGateway
	chain   chain.Reader
	claims  TxClaimer
	cfg     PaymentConfig
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store repository.Store, gateway payment.CheckoutGateway, reader chain.Reader,
	claims TxClaimer, cfg PaymentConfig, log logrus.FieldLogger) *PaymentService {
	// A transfer in the head block has not been confirmed yet.
	cfg.MinConfirmations = max(cfg.MinConfirmations, 1)
	return &PaymentService{
		store:   store,
		gateway: gateway,
		chain:   reader,
		claims:  claims,
		cfg:     cfg,
		log:     log.WithField("component", "payments"),
		now:     time.Now,
	}
}

// CreateCheckout opens a card checkout for a plan and records the pending payment.
func (s *PaymentService) CreateCheckout(ctx context.Context, caller domain.Identity, planType string) (*domain.CheckoutResponse, error) {
	plan, ok := domain.LookupPlan(planType)
	if !ok {
		return nil, domain.ErrBadRequest(domain.CodeInvalidPlan, "Tipo de plano inválido")
	}
	if s.gateway == nil {
		return nil, domain.ErrExternal(domain.CodeStripeError, "Erro ao criar sessão de pagamento",
			errors.New("card payments are not configured"))
	}

	session, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		UserID:      caller.Subject,
		Email:       caller.Email,
		PlanID:      plan.ID,
		ProductName: plan.Name,
		Description: strings.Join(plan.Features, ", "),
		UnitAmount:  plan.PriceCents(),
		Currency:    "brl",
		SuccessURL:  s.cfg.SiteURL + "/login?ok=1&plan=" + url.QueryEscape(plan.ID),
		CancelURL:   s.cfg.SiteURL + "/planos?cancel=1",
	})
	if err != nil {
		s.log.WithError(err).WithField("plan", plan.ID).Error("checkout session failed")
		return nil, domain.ErrExternal(domain.CodeStripeError, "Erro ao criar sessão de pagamento", err)
	}

	now := s.now()
	p := &domain.Payment{
		ID:          domain.NewPaymentID(),
		UserID:      caller.Subject,
		Method:      domain.MethodStripe,
		AmountBRL:   plan.Price,
		PlanType:    plan.ID,
		Status:      domain.PaymentPending,
		ProviderRef: domain.ProviderRef{StripeSessionID: session.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Payments().Create(ctx, p); err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}

	return &domain.CheckoutResponse{SessionURL: session.URL, SessionID: session.ID}, nil
}

// SubmitCrypto verifies an on-chain payment and activates the plan it pays for.
func (s *PaymentService) SubmitCrypto(ctx context.Context, caller domain.Identity, req domain.CryptoSubmitRequest) (*domain.ActivationResponse, error) {
	hash := domain.NormalizeTxHash(req.TxHash)
	plan, ok := domain.LookupPlan(req.PlanType)
	if hash == "" || !ok {
		return nil, domain.ErrBadRequest(domain.CodeInvalidData, "Hash da transação e tipo de plano são obrigatórios")
	}
	if !chain.ValidHash(hash) {
		return nil, domain.ErrBadRequest(domain.CodeInvalidData, "Hash da transação inválido")
	}

	existing, err := s.store.Payments().FindByTxHash(ctx, hash)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	if existing != nil {
		return nil, errDuplicateTransaction()
	}

	owner := uuid.NewString()
	claimed, err := s.claims.Acquire(ctx, hash, owner)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	if !claimed {
		return nil, errDuplicateTransaction()
	}
	defer func() {
		if err := s.claims.Release(context.WithoutCancel(ctx), hash, owner); err != nil {
			s.log.WithError(err).WithField("tx", hash).Warn("failed to release tx claim")
		}
	}()

	if err := s.verifyTransfer(ctx, hash, plan); err != nil {
		return nil, err
	}

	now := s.now()
	userPlan := plan.UserPlan(domain.PlanExpiry(now))
	act := &domain.Activation{
		UserID: caller.Subject,
		Email:  caller.Email,
		Plan:   userPlan,
		At:     now,
		Payment: &domain.Payment{
			ID:          domain.NewPaymentID(),
			UserID:      caller.Subject,
			Method:      domain.MethodCrypto,
			AmountBRL:   plan.Price,
			PlanType:    plan.ID,
			Status:      domain.PaymentSucceeded,
			ProviderRef: domain.ProviderRef{TxHash: hash},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	if err := s.store.Activations().ActivateWithPayment(ctx, act); err != nil {
		if errors.Is(err, repository.ErrDuplicateTxHash) {
			return nil, errDuplicateTransaction()
		}
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}

	s.log.WithFields(logrus.Fields{"user": caller.Subject, "plan": plan.ID, "tx": hash}).Info("plan activated by crypto payment")
	return &domain.ActivationResponse{
		Message: "Pagamento em cripto processado com sucesso",
		Plan: domain.ActivatedPlan{
			Type:      userPlan.Type,
			Status:    userPlan.Status,
			ExpiresAt: *userPlan.ExpiresAt,
		},
	}, nil
}

// verifyTransfer checks the transaction against the plan, in a fixed order.
func (s *PaymentService) verifyTransfer(ctx context.Context, hash string, plan domain.Plan) error {
	if s.chain == nil {
		return domain.ErrExternal(domain.CodeBlockchainError, "Erro ao validar transação na blockchain",
			errors.New("chain RPC is not configured"))
	}
	h := common.HexToHash(hash)

	tx, _, err := s.chain.TransactionByHash(ctx, h)
	if err != nil {
		return s.rpcError(err, hash)
	}
	receipt, err := s.chain.TransactionReceipt(ctx, h)
	if err != nil {
		return s.rpcError(err, hash)
	}
	if tx == nil || receipt == nil {
		return errTransactionNotFound()
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.ErrBadRequest(domain.CodeTransactionFailed, "Transação falhou na blockchain")
	}
	if !chain.SameAddress(tx.To(), s.cfg.AdminWallet) {
		return domain.ErrBadRequest(domain.CodeInvalidRecipient, "Transação enviada para carteira incorreta")
	}
	if !chain.WithinTolerance(tx.Value(), plan.PriceWei(), amountTolerancePercent) {
		return domain.ErrBadRequest(domain.CodeInvalidAmount, "Valor da transação não corresponde ao plano")
	}

	current, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return s.rpcError(err, hash)
	}
	if chain.Confirmations(current, receipt.BlockNumber) < s.cfg.MinConfirmations {
		return domain.ErrBadRequest(domain.CodeInsufficientConfirmations,
			fmt.Sprintf("Transação precisa de pelo menos %d confirmação(ões)", s.cfg.MinConfirmations))
	}
	return nil
}

func (s *PaymentService) rpcError(err error, hash string) error {
	if chain.IsNotFound(err) {
		return errTransactionNotFound()
	}
	s.log.WithError(err).WithField("tx", hash).Error("chain RPC failed")
	return domain.ErrExternal(domain.CodeBlockchainError, "Erro ao validar transação na blockchain", err)
}

// HandleStripeWebhook verifies a webhook delivery and applies it.
func (s *PaymentService) HandleStripeWebhook(ctx context.Context, body []byte, signature string) error {
	if s.gateway == nil {
		return domain.ErrBadRequest(domain.CodeInvalidSignature, "Assinatura do webhook inválida")
	}
	ev, err := s.gateway.ParseWebhook(body, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return domain.ErrBadRequest(domain.CodeInvalidSignature, "Assinatura do webhook inválida")
		}
		return domain.ErrBadRequest(domain.CodeInvalidJSON, "JSON inválido")
	}

	entry := s.log.WithFields(logrus.Fields{"event": ev.ID, "type": ev.Type, "session": ev.SessionID})
	switch ev.Type {
	case payment.EventCheckoutCompleted:
		return s.completeCheckout(ctx, ev, entry)
	case payment.EventCheckoutExpired:
		if _, err := s.store.Payments().MarkCheckoutFailed(ctx, ev.SessionID, s.now()); err != nil {
			return domain.ErrInternal("Erro interno do servidor", err)
		}
		entry.Info("checkout session expired")
	default:
		entry.Debug("ignoring webhook event")
	}
	return nil
}

func (s *PaymentService) completeCheckout(ctx context.Context, ev *payment.WebhookEvent, entry logrus.FieldLogger) error {
	subject := ev.Metadata[payment.MetaSubject]
	plan, ok := domain.LookupPlan(ev.Metadata[payment.MetaPlanType])
	if subject == "" || !ok {
		entry.Warn("checkout session without usable metadata")
		return nil
	}

	now := s.now()
	act := &domain.Activation{
		UserID: subject,
		Plan:   plan.UserPlan(domain.PlanExpiry(now)),
		At:     now,
	}
	err := s.store.Activations().CompleteCheckout(ctx, ev.SessionID, act)
	if errors.Is(err, repository.ErrPaymentNotPending) {
		entry.Info("checkout session already processed")
		return nil
	}
	if err != nil {
		return domain.ErrInternal("Erro interno do servidor", err)
	}
	entry.WithFields(logrus.Fields{"user": subject, "plan": plan.ID}).Info("plan activated by card payment")
	return nil
}

// ListPayments returns the caller's payments, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, userID string) ([]*domain.Payment, error) {
	payments, err := s.store.Payments().ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	return payments, nil
}

// CurrentPlan returns the caller's plan, or nil when they never bought one.
func (s *PaymentService) CurrentPlan(ctx context.Context, userID string) (*domain.UserPlan, error) {
	u, err := s.store.Users().FindBySubject(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	if u == nil || u.Plan == nil {
		return nil, nil
	}
	plan := *u.Plan
	if plan.Status == domain.PlanStatusActive && !plan.ActiveAt(s.now()) {
		plan.Status = domain.PlanStatusExpired
	}
	return &plan, nil
}

func errDuplicateTransaction() *domain.AppError {
	return domain.ErrConflict(domain.CodeDuplicateTransaction, "Transação já processada")
}

func errTransactionNotFound() *domain.AppError {
	return domain.ErrBadRequest(domain.CodeTransactionNotFound, "Transação não encontrada na blockchain")
}
