package controller

import (
	"procedure-qa-be/internal/dto"
	"procedure-qa-be/internal/pkg/serverutils"
	"procedure-qa-be/internal/service"
	"procedure-qa-be/pkg/router"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	ListCollections(ctx *fiber.Ctx) error
	RebuildRouterCache(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService    service.IDocumentService
	routerCacheService service.IRouterCacheService
	queryRouter        *router.Router
}

func NewDocumentController(
	documentService service.IDocumentService,
	routerCacheService service.IRouterCacheService,
	queryRouter *router.Router,
) IDocumentController {
	return &documentController{
		documentService:    documentService,
		routerCacheService: routerCacheService,
		queryRouter:        queryRouter,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/corpus/v1")
	h.Use(serverutils.JwtMiddleware) // corpus management is operator-only
	h.Get("collections", c.ListCollections)
	h.Post("router-cache/rebuild", c.RebuildRouterCache)
	h.Post("documents", c.Create)
	h.Get("documents", c.List)
	h.Get("documents/:id", c.Show)
	h.Put("documents/:id", c.Update)
	h.Delete("documents/:id", c.Delete)
}

func (c *documentController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.documentService.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create document", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	res, err := c.documentService.GetById(ctx.Context(), id)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show document", res))
}

func (c *documentController) Update(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	var req dto.UpdateDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.documentService.Update(ctx.Context(), id, &req)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update document", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}

	if err := c.documentService.Delete(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete document", nil))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	var req dto.ListDocumentsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return err
	}

	res, err := c.documentService.List(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) ListCollections(ctx *fiber.Ctx) error {
	res, err := c.documentService.ListCollections(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list collections", res))
}

func (c *documentController) RebuildRouterCache(ctx *fiber.Ctx) error {
	cache, err := c.routerCacheService.Rebuild(ctx.Context())
	if err != nil {
		return err
	}
	c.queryRouter.Reload(cache)

	return ctx.JSON(serverutils.SuccessResponse("Success rebuild router cache", fiber.Map{
		"entries": cache.Len(),
	}))
}
