// Package ledger exposes the monthly balance and the per-row ledger operations over HTTP.
package ledger

import (
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/domain/ledger"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/middleware"
	"github.com/budgee/family/pkg/service/balance"
	"github.com/budgee/family/pkg/service/lifecycle"
	"github.com/budgee/family/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Routes registers the ledger endpoints. Every route requires a valid JWT.
//
// Routes:
//   - GET  /balance                   : Monthly window with running balance (?year, ?month, ?status).
//   - POST /balance/point             : Point or unpoint every row of a month.
//   - GET  /transactions/upcoming     : Next pending rows (?kind, ?limit).
//   - POST /transactions/:id/cancel   : Cancel a row, or its past/future/all siblings (?mode).
//   - PUT  /transactions/:id/status   : Mark a row completed or pending.
//   - POST /transactions/:id/point    : Toggle the pointed flag of a row.
func Routes(app *fiber.App, balanceSvc *balance.Service, ops *lifecycle.Service, cfg *config.App) {
	protected := middleware.JwtProtected(*cfg.Auth.Jwt)
	app.Get("/balance", protected, GetBalance(balanceSvc, ops))
	app.Post("/balance/point", protected, BulkPoint(balanceSvc))
	app.Get("/transactions/upcoming", protected, ListUpcoming(balanceSvc))
	app.Post("/transactions/:id/cancel", protected, CancelTransaction(ops))
	app.Put("/transactions/:id/status", protected, SetStatus(ops))
	app.Post("/transactions/:id/point", protected, TogglePointed(balanceSvc))
}

// GetBalance returns a handler answering the monthly window. Year and month default
// to the current month.
func GetBalance(svc *balance.Service, ops *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		today := ops.Today()
		year := c.QueryInt("year", today.Year())
		month := c.QueryInt("month", int(today.Month()))
		filter, err := ledger.ParseStatusFilter(c.Query("status"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid status filter", err, fiber.StatusBadRequest)
		}
		w, err := svc.Balance(c.UserContext(), userID, year, month, filter)
		if err != nil {
			log.Errorf("Failed to compute balance for %d-%02d: %v", year, month, err)
			return common.ProblemDetailsJSON(c, "Failed to compute balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance fetched", ToBalanceResponse(w))
	}
}

// BulkPoint returns a handler setting the pointed flag across a month.
func BulkPoint(svc *balance.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		req, err := common.BindAndValidate[BulkPointRequest](c)
		if req == nil {
			return err
		}
		filter, err := ledger.ParseStatusFilter(req.Status)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid status filter", err, fiber.StatusBadRequest)
		}
		n, err := svc.BulkPoint(c.UserContext(), userID, req.Year, req.Month, filter, *req.Pointed)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to point transactions", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions pointed", fiber.Map{"updated": n})
	}
}

// ListUpcoming returns a handler listing the next pending rows.
func ListUpcoming(svc *balance.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		var kind source.Kind
		if raw := c.Query("kind"); raw != "" {
			if kind, err = source.ParseKind(raw); err != nil {
				return common.ProblemDetailsJSON(c, "Invalid source kind", err, fiber.StatusBadRequest)
			}
		}
		txs, err := svc.ListUpcoming(c.UserContext(), userID, kind, c.QueryInt("limit", 0))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list upcoming transactions", err)
		}
		out := make([]TransactionResponse, 0, len(txs))
		for _, t := range txs {
			out = append(out, ToTransactionResponse(t))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Upcoming transactions fetched", out)
	}
}

// CancelTransaction returns a handler cancelling a row or a range of its source's rows.
func CancelTransaction(ops *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		mode, err := ledger.ParseCancelMode(c.Query("mode"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid cancellation mode", err, fiber.StatusBadRequest)
		}
		n, err := ops.CancelTransaction(c.UserContext(), userID, id, mode)
		if err != nil {
			log.Errorf("Failed to cancel transaction %s (%s): %v", id, mode, err)
			return common.ProblemDetailsJSON(c, "Failed to cancel transaction", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions cancelled", fiber.Map{"cancelled": n, "mode": mode})
	}
}

// SetStatus returns a handler marking a row completed or pending.
func SetStatus(ops *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		req, err := common.BindAndValidate[StatusRequest](c)
		if req == nil {
			return err
		}
		status, err := ledger.ParseStatus(req.Status)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid status", err, fiber.StatusBadRequest)
		}
		if err := ops.SetTransactionStatus(c.UserContext(), userID, id, status); err != nil {
			return common.ProblemDetailsJSON(c, "Failed to update status", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Status updated", fiber.Map{"status": status})
	}
}

// TogglePointed returns a handler flipping the pointed flag of a row.
func TogglePointed(svc *balance.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		pointed, err := svc.TogglePointed(c.UserContext(), userID, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to toggle pointed flag", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Pointed flag toggled", fiber.Map{"is_pointed": pointed})
	}
}
