// internal/service/account/account_service.go
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pochasovo-service/internal/domain/account"
	"pochasovo-service/internal/events"
	xerrors "pochasovo-service/internal/pkg/errors"
	"pochasovo-service/internal/pkg/metrics"
	"pochasovo-service/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

// AccountService is the only write path to owner balances. Every mutation
// locks the owner row, moves the balances and appends exactly one
// transaction, all inside one DB transaction.
type AccountService struct {
	accountRepo *postgres.OwnerAccountRepository
	txRepo      *postgres.TransactionRepository
	db          *postgres.DB
	publisher   *events.Publisher
	metrics     *metrics.LedgerMetrics
	logger      *zap.Logger

	cashbackPercent int64
}

func NewAccountService(
	accountRepo *postgres.OwnerAccountRepository,
	txRepo *postgres.TransactionRepository,
	db *postgres.DB,
	publisher *events.Publisher,
	m *metrics.LedgerMetrics,
	logger *zap.Logger,
	cashbackPercent int64,
) *AccountService {
	return &AccountService{
		accountRepo:     accountRepo,
		txRepo:          txRepo,
		db:              db,
		publisher:       publisher,
		metrics:         m,
		logger:          logger,
		cashbackPercent: cashbackPercent,
	}
}

// GetAccount returns the authoritative balances for an owner.
func (s *AccountService) GetAccount(ctx context.Context, ownerID int64) (*account.OwnerAccount, error) {
	return s.accountRepo.FindByID(ctx, ownerID)
}

// ListTransactions returns a page of the owner's ledger, newest first.
func (s *AccountService) ListTransactions(ctx context.Context, ownerID int64, filters *account.TransactionListFilters) ([]account.Transaction, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 50
	}
	return s.txRepo.ListByOwner(ctx, ownerID, filters)
}

// SpendWithTx deducts total from the owner, bonus balance first, within
// the caller's DB transaction. The owner row lock taken here is what
// serializes concurrent spends: the second caller blocks until the first
// commits and then re-checks affordability against the committed balance.
func (s *AccountService) SpendWithTx(
	ctx context.Context,
	tx pgx.Tx,
	ownerID int64,
	total int64,
	txType account.TransactionType,
	description string,
	relatedListingID *int64,
	staffID *int64,
) (*account.Transaction, account.SpendSplit, error) {
	if total <= 0 {
		return nil, account.SpendSplit{}, xerrors.Wrap(xerrors.ErrInvalidInput, "spend amount must be positive")
	}

	acc, err := s.accountRepo.FindForUpdateWithTx(ctx, tx, ownerID)
	if err != nil {
		return nil, account.SpendSplit{}, err
	}

	split, ok := acc.SplitSpend(total)
	if !ok {
		s.metrics.SpendsRejectedTotal.WithLabelValues("insufficient_funds").Inc()
		return nil, account.SpendSplit{}, xerrors.NewInsufficientFunds(total, acc.Spendable())
	}

	newReal := acc.RealBalance - split.FromReal
	newBonus := acc.BonusBalance - split.FromBonus
	if err := s.accountRepo.UpdateBalancesWithTx(ctx, tx, ownerID, newReal, newBonus); err != nil {
		return nil, account.SpendSplit{}, err
	}

	tr := &account.Transaction{
		Reference:    s.generateTransactionReference(),
		OwnerID:      ownerID,
		Amount:       -total,
		Type:         txType,
		Description:  description,
		BalanceAfter: newReal + newBonus,
	}
	if relatedListingID != nil {
		tr.RelatedListingID = sql.NullInt64{Int64: *relatedListingID, Valid: true}
	}
	if staffID != nil {
		tr.StaffID = sql.NullInt64{Int64: *staffID, Valid: true}
	}

	if err := s.txRepo.CreateWithTx(ctx, tx, tr); err != nil {
		return nil, account.SpendSplit{}, err
	}

	s.metrics.TransactionsTotal.WithLabelValues(string(txType)).Inc()
	s.metrics.TransactionAmountTotal.WithLabelValues(string(txType)).Add(float64(total))
	return tr, split, nil
}

// CreditWithTx adds amount to the chosen balance within the caller's DB
// transaction.
func (s *AccountService) CreditWithTx(
	ctx context.Context,
	tx pgx.Tx,
	ownerID int64,
	amount int64,
	target account.BalanceTarget,
	txType account.TransactionType,
	description string,
	relatedListingID *int64,
	staffID *int64,
	gatewayRef *string,
) (*account.Transaction, error) {
	if amount <= 0 {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "credit amount must be positive")
	}

	acc, err := s.accountRepo.FindForUpdateWithTx(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	newReal, newBonus := acc.RealBalance, acc.BonusBalance
	switch target {
	case account.BalanceReal:
		newReal += amount
	case account.BalanceBonus:
		newBonus += amount
	default:
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, fmt.Sprintf("unknown balance target %q", target))
	}

	if err := s.accountRepo.UpdateBalancesWithTx(ctx, tx, ownerID, newReal, newBonus); err != nil {
		return nil, err
	}

	tr := &account.Transaction{
		Reference:    s.generateTransactionReference(),
		OwnerID:      ownerID,
		Amount:       amount,
		Type:         txType,
		Description:  description,
		BalanceAfter: newReal + newBonus,
	}
	if relatedListingID != nil {
		tr.RelatedListingID = sql.NullInt64{Int64: *relatedListingID, Valid: true}
	}
	if staffID != nil {
		tr.StaffID = sql.NullInt64{Int64: *staffID, Valid: true}
	}
	if gatewayRef != nil {
		tr.GatewayRef = sql.NullString{String: *gatewayRef, Valid: true}
	}

	if err := s.txRepo.CreateWithTx(ctx, tx, tr); err != nil {
		return nil, err
	}

	s.metrics.TransactionsTotal.WithLabelValues(string(txType)).Inc()
	s.metrics.TransactionAmountTotal.WithLabelValues(string(txType)).Add(float64(amount))
	return tr, nil
}

// Spend is the standalone variant of SpendWithTx.
func (s *AccountService) Spend(
	ctx context.Context,
	ownerID int64,
	total int64,
	txType account.TransactionType,
	description string,
	staffID *int64,
) (*account.Transaction, account.SpendSplit, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, account.SpendSplit{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tr, split, err := s.SpendWithTx(ctx, tx, ownerID, total, txType, description, nil, staffID)
	if err != nil {
		return nil, account.SpendSplit{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, account.SpendSplit{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishTransaction(ctx, tr)
	return tr, split, nil
}

// Credit is the standalone variant of CreditWithTx. Used by staff bonus
// grants and refunds.
func (s *AccountService) Credit(
	ctx context.Context,
	ownerID int64,
	amount int64,
	target account.BalanceTarget,
	txType account.TransactionType,
	description string,
	staffID *int64,
) (*account.Transaction, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tr, err := s.CreditWithTx(ctx, tx, ownerID, amount, target, txType, description, nil, staffID, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishTransaction(ctx, tr)
	return tr, nil
}

// CreateTopUpIntent hands the owner a payment reference for the gateway.
// The intent itself holds no money; the ledger only moves on the
// gateway's confirmation webhook.
func (s *AccountService) CreateTopUpIntent(ctx context.Context, ownerID, amount int64) (*account.TopUpIntent, error) {
	if amount <= 0 {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "top-up amount must be positive")
	}

	acc, err := s.accountRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if acc.ArchivedAt.Valid {
		return nil, xerrors.Wrap(xerrors.ErrForbidden, "account is archived")
	}

	intent := &account.TopUpIntent{
		Reference: s.generateIntentReference(),
		OwnerID:   ownerID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}

	s.logger.Info("top-up intent created",
		zap.String("reference", intent.Reference),
		zap.Int64("owner_id", ownerID),
		zap.Int64("amount", amount))
	return intent, nil
}

// ConfirmTopUp credits a gateway-confirmed deposit, idempotently keyed by
// the gateway's transaction id. Cashback is appended as a second,
// separate bonus transaction so every row keeps a single cause.
func (s *AccountService) ConfirmTopUp(ctx context.Context, conf *account.TopUpConfirmation) (*account.Transaction, error) {
	if existing, err := s.txRepo.FindByGatewayRef(ctx, conf.GatewayRef); err == nil {
		s.logger.Info("duplicate top-up webhook ignored",
			zap.String("gateway_ref", conf.GatewayRef),
			zap.Int64("owner_id", conf.OwnerID))
		return existing, nil
	} else if !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deposit, err := s.CreditWithTx(
		ctx, tx, conf.OwnerID, conf.Amount,
		account.BalanceReal, account.TransactionTopUp,
		"Top-up via payment gateway",
		nil, nil, &conf.GatewayRef,
	)
	if err != nil {
		// A concurrent webhook for the same gateway ref can slip past the
		// pre-check; the unique index turns that into a clean replay.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return s.txRepo.FindByGatewayRef(ctx, conf.GatewayRef)
		}
		return nil, err
	}

	if cashback := account.Cashback(conf.Amount, s.cashbackPercent); cashback > 0 {
		if _, err := s.CreditWithTx(
			ctx, tx, conf.OwnerID, cashback,
			account.BalanceBonus, account.TransactionBonusGrant,
			fmt.Sprintf("Cashback %d%% on top-up", s.cashbackPercent),
			nil, nil, nil,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishTransaction(ctx, deposit)
	return deposit, nil
}

// VerifyReplay refolds the owner's full ledger and compares it to the
// stored balances.
func (s *AccountService) VerifyReplay(ctx context.Context, ownerID int64) (*account.ReplayReport, error) {
	acc, err := s.accountRepo.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	txs, err := s.txRepo.ListAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ledgerReal, ledgerBonus := account.Replay(txs)
	report := &account.ReplayReport{
		OwnerID:        ownerID,
		LedgerReal:     ledgerReal,
		LedgerBonus:    ledgerBonus,
		RealBalance:    acc.RealBalance,
		BonusBalance:   acc.BonusBalance,
		TransactionCnt: len(txs),
	}
	report.Consistent = ledgerReal == acc.RealBalance && ledgerBonus == acc.BonusBalance

	if !report.Consistent {
		s.logger.Error("ledger replay mismatch",
			zap.Int64("owner_id", ownerID),
			zap.Int64("ledger_real", ledgerReal),
			zap.Int64("ledger_bonus", ledgerBonus),
			zap.Int64("real_balance", acc.RealBalance),
			zap.Int64("bonus_balance", acc.BonusBalance))
	}
	return report, nil
}

// PublishTransaction emits the ledger event for a transaction committed
// by a composing service (subscription, promotion, gift).
func (s *AccountService) PublishTransaction(ctx context.Context, tr *account.Transaction) {
	s.publishTransaction(ctx, tr)
}

func (s *AccountService) publishTransaction(ctx context.Context, tr *account.Transaction) {
	s.publisher.Publish(ctx, events.LedgerEvent{
		Type:      events.TypeTransactionAppended,
		OwnerID:   tr.OwnerID,
		ListingID: tr.RelatedListingID.Int64,
		Amount:    tr.Amount,
		At:        time.Now().UTC(),
	})
}

// generateIntentReference generates a unique top-up request reference
func (s *AccountService) generateIntentReference() string {
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("REQ-%s-%s", timestamp, ulid.Make().String()[20:])
}

// generateTransactionReference generates a unique ledger reference
func (s *AccountService) generateTransactionReference() string {
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf("TXN-%s-%s", timestamp, ulid.Make().String()[20:])
}
