package service

import (
    "context"
    "errors"
    "log/slog"
    "strings"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/model"
    "github.com/iliyamo/ecommerce-api/internal/repository"
)

var errProductNotFound = apperr.E(apperr.NotFound, "product not found")

// CatalogService serves product reads and reviews.
type CatalogService struct {
    products Catalog
    reviews  ReviewStore
    log      *slog.Logger
}

func NewCatalogService(products Catalog, reviews ReviewStore, log *slog.Logger) *CatalogService {
    if log == nil {
        log = slog.Default()
    }
    return &CatalogService{products: products, reviews: reviews, log: log}
}

func (s *CatalogService) ListProducts(ctx context.Context, search string, p model.Page) (model.PageResult[model.Product], error) {
    items, total, err := s.products.List(ctx, strings.TrimSpace(search), p)
    if err != nil {
        return model.PageResult[model.Product]{}, apperr.Internalf(err, "could not list products")
    }
    return model.PageResult[model.Product]{Items: items, Total: total, Page: p}, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint64) (*model.Product, error) {
    p, err := s.products.FindByID(ctx, id)
    if errors.Is(err, repository.ErrNotFound) {
        return nil, errProductNotFound
    }
    if err != nil {
        return nil, apperr.Internalf(err, "could not load product")
    }
    return p, nil
}

type ReviewInput struct {
    Rating  uint8
    Comment string
}

// AddReview records userID's review of a product.  Each user reviews a
// product at most once.
func (s *CatalogService) AddReview(ctx context.Context, userID, productID uint64, in ReviewInput) (*model.Review, error) {
    if in.Rating < 1 || in.Rating > 5 {
        return nil, apperr.E(apperr.InvalidInput, "rating must be between 1 and 5")
    }
    if _, err := s.GetProduct(ctx, productID); err != nil {
        return nil, err
    }
    rv := &model.Review{UserID: userID, ProductID: productID, Rating: in.Rating, Comment: strings.TrimSpace(in.Comment)}
    if err := s.reviews.Create(ctx, rv); err != nil {
        if errors.Is(err, repository.ErrAlreadyReviewed) {
            return nil, apperr.E(apperr.Conflict, "you already reviewed this product")
        }
        return nil, apperr.Internalf(err, "could not save review")
    }
    return rv, nil
}

func (s *CatalogService) ListReviews(ctx context.Context, productID uint64, p model.Page) (model.PageResult[model.Review], error) {
    if _, err := s.GetProduct(ctx, productID); err != nil {
        return model.PageResult[model.Review]{}, err
    }
    items, total, err := s.reviews.ListByProduct(ctx, productID, p)
    if err != nil {
        return model.PageResult[model.Review]{}, apperr.Internalf(err, "could not list reviews")
    }
    return model.PageResult[model.Review]{Items: items, Total: total, Page: p}, nil
}
