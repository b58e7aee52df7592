package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/budgee/family/pkg/domain"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/schedule"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/repository"
	"github.com/google/uuid"
)

// IssueCheck adds an available check to the user's checkbook.
func (s *Service) IssueCheck(ctx context.Context, userID uuid.UUID, number string) (*source.Check, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, domain.Invalid("check number is required")
	}
	c := &source.Check{UserID: userID, Number: number, Status: source.CheckAvailable}
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		checks, err := uow.CheckRepository()
		if err != nil {
			return err
		}
		return checks.Create(ctx, c)
	})
	if err != nil {
		s.logger.Error("IssueCheck failed", "user_id", userID, "error", err)
		return nil, err
	}
	return c, nil
}

// RecordCheckUsed marks an available check as written and records its ledger row.
func (s *Service) RecordCheckUsed(ctx context.Context, userID, checkID uuid.UUID, use CheckUse) (*ledger.Transaction, error) {
	logger := s.logger.With("context", "RecordCheckUsed", "user_id", userID, "check_id", checkID)
	today := s.Today()
	var row *ledger.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		checks, err := uow.CheckRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		c, err := ownedCheck(ctx, checks, userID, checkID)
		if err != nil {
			return err
		}
		if err := c.Use(use.Payee, use.Amount, use.Currency, use.Date, use.Description); err != nil {
			return err
		}
		if err := checks.Update(ctx, c); err != nil {
			return err
		}
		key := ledger.Key{SourceType: source.KindCheck, SourceID: c.ID, Date: *c.CheckDate}
		row, err = txs.Upsert(ctx, key, ledger.Fields{
			UserID:           userID,
			Name:             fmt.Sprintf("Chèque n°%s - %s", c.Number, c.Payee),
			Description:      c.Description,
			Amount:           c.Amount,
			Currency:         c.Currency,
			CategorySnapshot: source.CheckCategory,
			Status:           ledger.StatusFor(key.Date, today),
		}, today)
		return err
	})
	if err != nil {
		logger.Error("RecordCheckUsed failed", "error", err)
		return nil, err
	}
	logger.Info("RecordCheckUsed successful", "transaction_id", row.ID)
	return row, nil
}

// CancelCheck voids a check and cancels its ledger row.
func (s *Service) CancelCheck(ctx context.Context, userID, checkID uuid.UUID) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		checks, err := uow.CheckRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		c, err := ownedCheck(ctx, checks, userID, checkID)
		if err != nil {
			return err
		}
		if c.Status == source.CheckCancelled {
			return nil
		}
		c.Status = source.CheckCancelled
		if err := checks.Update(ctx, c); err != nil {
			return err
		}
		_, err = txs.CancelWhere(ctx, repository.Scope{SourceType: source.KindCheck, SourceID: c.ID})
		return err
	})
	if err != nil {
		s.logger.Error("CancelCheck failed", "user_id", userID, "check_id", checkID, "error", err)
	}
	return err
}

// ResetCheck returns a check to the available pool and removes its ledger rows.
func (s *Service) ResetCheck(ctx context.Context, userID, checkID uuid.UUID) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		checks, err := uow.CheckRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		c, err := ownedCheck(ctx, checks, userID, checkID)
		if err != nil {
			return err
		}
		if _, err := txs.DeleteAllForSource(ctx, source.KindCheck, c.ID); err != nil {
			return err
		}
		c.Reset()
		return checks.Update(ctx, c)
	})
	if err != nil {
		s.logger.Error("ResetCheck failed", "user_id", userID, "check_id", checkID, "error", err)
	}
	return err
}

// RecordCardPurchase stores a card payment and its completed ledger row.
func (s *Service) RecordCardPurchase(ctx context.Context, userID uuid.UUID, in CardPurchaseInput) (*source.CardPurchase, error) {
	logger := s.logger.With("context", "RecordCardPurchase", "user_id", userID)
	p := &source.CardPurchase{
		UserID:       userID,
		PurchaseDate: schedule.Normalize(in.PurchaseDate),
		Amount:       in.Amount,
		Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
		MerchantName: strings.TrimSpace(in.MerchantName),
		Category:     in.Category,
		Description:  in.Description,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	today := s.Today()
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		purchases, err := uow.CardPurchaseRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		if err := purchases.Create(ctx, p); err != nil {
			return err
		}
		key := ledger.Key{SourceType: source.KindCardPurchase, SourceID: p.ID, Date: p.PurchaseDate}
		_, err = txs.Upsert(ctx, key, ledger.Fields{
			UserID:           userID,
			Name:             p.MerchantName,
			Description:      p.Description,
			Amount:           p.Amount,
			Currency:         p.Currency,
			CategorySnapshot: p.Category,
			Status:           ledger.StatusCompleted,
		}, today)
		return err
	})
	if err != nil {
		logger.Error("RecordCardPurchase failed", "error", err)
		return nil, err
	}
	logger.Info("RecordCardPurchase successful", "purchase_id", p.ID)
	return p, nil
}

// DeleteCardPurchase removes a card payment and its ledger row.
func (s *Service) DeleteCardPurchase(ctx context.Context, userID, purchaseID uuid.UUID) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		purchases, err := uow.CardPurchaseRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		p, err := purchases.Get(ctx, purchaseID)
		if err != nil {
			return err
		}
		if p.UserID != userID {
			return domain.ErrNotFound
		}
		if _, err := txs.DeleteAllForSource(ctx, source.KindCardPurchase, p.ID); err != nil {
			return err
		}
		return purchases.Delete(ctx, p.ID)
	})
	if err != nil {
		s.logger.Error("DeleteCardPurchase failed", "user_id", userID, "purchase_id", purchaseID, "error", err)
	}
	return err
}

func ownedCheck(ctx context.Context, checks repository.CheckRepository, userID, id uuid.UUID) (*source.Check, error) {
	c, err := checks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return c, nil
}
