package controller

import (
	"procedure-qa-be/internal/dto"
	"procedure-qa-be/internal/pkg/serverutils"
	"procedure-qa-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IResolutionController interface {
	RegisterRoutes(r fiber.Router)
	ResolveQuery(ctx *fiber.Ctx) error
	SubmitClarification(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	GetSessionSummary(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
}

type resolutionController struct {
	resolutionService service.IResolutionService
}

func NewResolutionController(resolutionService service.IResolutionService) IResolutionController {
	return &resolutionController{
		resolutionService: resolutionService,
	}
}

// Resolution endpoints are public; they carry no operator privileges.
func (c *resolutionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/resolution/v1")
	h.Post("query", c.ResolveQuery)
	h.Post("clarify", c.SubmitClarification)
	h.Post("session", c.CreateSession)
	h.Get("session/:id", c.GetSessionSummary)
	h.Delete("session/:id", c.ResetSession)
}

func (c *resolutionController) ResolveQuery(ctx *fiber.Ctx) error {
	var req dto.ResolveQueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.resolutionService.ResolveQuery(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resolve query", res))
}

func (c *resolutionController) SubmitClarification(ctx *fiber.Ctx) error {
	var req dto.SubmitClarificationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.resolutionService.SubmitClarification(ctx.Context(), &req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success submit clarification", res))
}

func (c *resolutionController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.resolutionService.CreateSession(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *resolutionController) GetSessionSummary(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	res, err := c.resolutionService.GetSessionSummary(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *resolutionController) ResetSession(ctx *fiber.Ctx) error {
	id := ctx.Params("id")

	res, err := c.resolutionService.ResetSession(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}
