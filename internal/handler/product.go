package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ecommerce-api/internal/middleware"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/service"
)

// Products is implemented by *service.CatalogService.
type Products interface {
    ListProducts(ctx context.Context, search string, p model.Page) (model.PageResult[model.Product], error)
    GetProduct(ctx context.Context, id uint64) (*model.Product, error)
    AddReview(ctx context.Context, userID, productID uint64, in service.ReviewInput) (*model.Review, error)
    ListReviews(ctx context.Context, productID uint64, p model.Page) (model.PageResult[model.Review], error)
}

// ProductHandler serves the catalog.  Reads are public; posting a review
// requires authentication.
type ProductHandler struct {
    Products Products
}

func NewProductHandler(p Products) *ProductHandler {
    return &ProductHandler{Products: p}
}

type reviewReq struct {
    Rating  uint8  `json:"rating" validate:"required,min=1,max=5"`
    Comment string `json:"comment" validate:"max=2000"`
}

func (h *ProductHandler) List(c echo.Context) error {
    res, err := h.Products.ListProducts(c.Request().Context(), c.QueryParam("search"), pageFrom(c))
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"products": mapAll(res.Items, toProduct), "pagination": pageMeta(res)})
}

func (h *ProductHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    p, err := h.Products.GetProduct(c.Request().Context(), id)
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"product": toProduct(p)})
}

func (h *ProductHandler) AddReview(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req reviewReq
    if err := bind(c, &req); err != nil {
        return err
    }
    me := middleware.CurrentUser(c)
    r, err := h.Products.AddReview(c.Request().Context(), me.ID, id, service.ReviewInput{Rating: req.Rating, Comment: req.Comment})
    if err != nil {
        return err
    }
    return success(c, http.StatusCreated, echo.Map{"review": toReview(r)})
}

func (h *ProductHandler) ListReviews(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    res, err := h.Products.ListReviews(c.Request().Context(), id, pageFrom(c))
    if err != nil {
        return err
    }
    return success(c, http.StatusOK, echo.Map{"reviews": mapAll(res.Items, toReview), "pagination": pageMeta(res)})
}
