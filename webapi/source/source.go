// Package source exposes the recurring source lifecycle over HTTP.
package source

import (
	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/domain/source"
	"github.com/budgee/family/pkg/middleware"
	"github.com/budgee/family/pkg/service/lifecycle"
	"github.com/budgee/family/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Routes registers the source endpoints. Every route requires a valid JWT.
//
// Routes:
//   - POST   /sources/:kind             : Create a source and project its ledger.
//   - PUT    /sources/:kind/:id         : Edit a source and re-project its future.
//   - POST   /sources/:kind/:id/toggle  : Activate or deactivate a source.
//   - DELETE /sources/:kind/:id         : Delete a source and all its rows.
func Routes(app *fiber.App, svc *lifecycle.Service, cfg *config.App) {
	protected := middleware.JwtProtected(*cfg.Auth.Jwt)
	app.Post("/sources/:kind", protected, CreateSource(svc))
	app.Put("/sources/:kind/:id", protected, EditSource(svc))
	app.Post("/sources/:kind/:id/toggle", protected, ToggleSource(svc))
	app.Delete("/sources/:kind/:id", protected, DeleteSource(svc))
}

func recurringKind(c *fiber.Ctx) (source.Kind, bool, error) {
	kind, err := source.ParseKind(c.Params("kind"))
	if err == nil && !kind.Recurring() {
		err = fiber.NewError(fiber.StatusNotFound, "not a recurring source kind")
	}
	if err != nil {
		return "", false, common.ProblemDetailsJSON(c, "Invalid source kind", err, fiber.StatusNotFound)
	}
	return kind, true, nil
}

// CreateSource returns a handler creating a recurring source for the caller.
func CreateSource(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		kind, ok, err := recurringKind(c)
		if !ok {
			return err
		}
		req, err := common.BindAndValidate[SourceRequest](c)
		if req == nil {
			return err
		}
		in, err := req.toInput(kind)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid source", err)
		}
		src, err := svc.CreateSource(c.UserContext(), userID, in)
		if err != nil {
			log.Errorf("Failed to create %s: %v", kind, err)
			return common.ProblemDetailsJSON(c, "Failed to create source", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Source created", ToSourceResponse(src))
	}
}

// EditSource returns a handler updating a source owned by the caller.
func EditSource(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		kind, ok, err := recurringKind(c)
		if !ok {
			return err
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		req, err := common.BindAndValidate[SourceRequest](c)
		if req == nil {
			return err
		}
		in, err := req.toInput(kind)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid source", err)
		}
		src, err := svc.EditSource(c.UserContext(), userID, kind, id, in)
		if err != nil {
			log.Errorf("Failed to edit %s %s: %v", kind, id, err)
			return common.ProblemDetailsJSON(c, "Failed to edit source", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Source updated", ToSourceResponse(src))
	}
}

// ToggleSource returns a handler switching a source on or off.
func ToggleSource(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		kind, ok, err := recurringKind(c)
		if !ok {
			return err
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		req, err := common.BindAndValidate[ToggleRequest](c)
		if req == nil {
			return err
		}
		if err := svc.ToggleSource(c.UserContext(), userID, kind, id, *req.Active); err != nil {
			log.Errorf("Failed to toggle %s %s: %v", kind, id, err)
			return common.ProblemDetailsJSON(c, "Failed to toggle source", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Source toggled", fiber.Map{"is_active": *req.Active})
	}
}

// DeleteSource returns a handler deleting a source and its ledger rows.
func DeleteSource(svc *lifecycle.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := middleware.UserID(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		kind, ok, err := recurringKind(c)
		if !ok {
			return err
		}
		id, ok, err := common.ParseID(c, "id")
		if !ok {
			return err
		}
		if err := svc.DeleteSource(c.UserContext(), userID, kind, id); err != nil {
			log.Errorf("Failed to delete %s %s: %v", kind, id, err)
			return common.ProblemDetailsJSON(c, "Failed to delete source", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
