// Package oneoff exposes checks and card purchases over HTTP.
package oneoff

import (
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/middleware"
	"github.com/budgee/family/pkg/service/lifecycle"
	"github.com/budgee/family/webapi/common"
	ledgerweb "github.com/budgee/family/webapi/ledger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Routes registers the one-off endpoints. Every route requires a valid JWT.
//
// Routes:
//   - POST   /checks                 : Issue an available check.
//   - POST   /checks/:id/use         : Write a check and record its ledger row.
//   - POST   /checks/:id/cancel      : Cancel a check and its row.
//   - POST   /checks/:id/reset       : Return a check to the available pool.
//   - POST   /card-purchases         : Record a card purchase.
//   - DELETE /card-purchases/:id     : Delete a card purchase and its row.
func Routes(app *fiber.App, svc *lifecycle.Service, cfg *config.App) {
	protected := middleware.JwtProtected(*cfg.Auth.Jwt)
	app.Post("/checks", protected, IssueCheck(svc))
	app.Post("/checks/:id/use", protected, UseCheck(svc))
	app.Post("/checks/:id/cancel", protected, CancelCheck(svc))
	app.Post("/checks/:id/reset", protected, ResetCheck(svc))
	app.Post("/card-purchases", protected, RecordCardPurchase(svc))
	app.Delete("/card-purchases/:id", protected, DeleteCardPurchase(svc))
}

// IssueCheck returns a handler adding a check to the caller's checkbook.
func IssueCheck(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		req, err := common.BindAndValidate[IssueCheckRequest](c)
		if req == nil {
			return err
		}
		check, err := svc.IssueCheck(c.UserContext(), userID, req.Number)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to issue check", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Check issued", ToCheckResponse(check))
	}
}

// UseCheck returns a handler recording a written check.
func UseCheck(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		req, err := common.BindAndValidate[UseCheckRequest](c)
		if req == nil {
			return err
		}
		date, err := common.ParseDate(req.Date)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date", err)
		}
		tx, err := svc.RecordCheckUsed(c.UserContext(), userID, id, lifecycle.CheckUse{
			Payee:       req.Payee,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Date:        *date,
			Description: req.Description,
		})
		if err != nil {
			log.Errorf("Failed to use check %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Failed to use check", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Check used", ledgerweb.ToTransactionResponse(tx))
	}
}

// CancelCheck returns a handler cancelling a check.
func CancelCheck(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		if err := svc.CancelCheck(c.UserContext(), userID, id); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to cancel check", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Check cancelled", nil)
	}
}

// ResetCheck returns a handler making a check available again.
func ResetCheck(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		if err := svc.ResetCheck(c.UserContext(), userID, id); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to reset check", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Check reset", nil)
	}
}

// RecordCardPurchase returns a handler recording a card purchase.
func RecordCardPurchase(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		req, err := common.BindAndValidate[CardPurchaseRequest](c)
		if req == nil {
			return err
		}
		date, err := common.ParseDate(req.PurchaseDate)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid date", err)
		}
		p, err := svc.RecordCardPurchase(c.UserContext(), userID, lifecycle.CardPurchaseInput{
			PurchaseDate: *date,
			Amount:       req.Amount,
			Currency:     req.Currency,
			MerchantName: req.MerchantName,
			Category:     req.Category,
			Description:  req.Description,
		})
		if err != nil {
			log.Errorf("Failed to record card purchase: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to record card purchase", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Card purchase recorded", ToCardPurchaseResponse(p))
	}
}

// DeleteCardPurchase returns a handler deleting a card purchase.
func DeleteCardPurchase(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		if err := svc.DeleteCardPurchase(c.UserContext(), userID, id); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to delete card purchase", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
