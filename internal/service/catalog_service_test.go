package service

import (
    "context"
    "testing"

    "github.com/iliyamo/ecommerce-api/internal/apperr"
    "github.com/iliyamo/ecommerce-api/internal/model"
)

func TestReviewsOncePerUser(t *testing.T) {
    e := newTestEnv(t)
    seedProducts(e)
    u, _ := e.register(t, "ann@example.com", "password-1")
    ctx := context.Background()

    rv, err := e.catalog.AddReview(ctx, u.ID, 1, ReviewInput{Rating: 5, Comment: " great "})
    if err != nil || rv.Comment != "great" {
        t.Fatalf("review: %+v %v", rv, err)
    }
    if _, err := e.catalog.AddReview(ctx, u.ID, 1, ReviewInput{Rating: 4}); !apperr.Is(err, apperr.Conflict) {
        t.Fatalf("double review must conflict, got %v", err)
    }
    if _, err := e.catalog.AddReview(ctx, u.ID, 404, ReviewInput{Rating: 4}); !apperr.Is(err, apperr.NotFound) {
        t.Fatalf("unknown product must be not found, got %v", err)
    }
    if _, err := e.catalog.AddReview(ctx, u.ID, 2, ReviewInput{Rating: 6}); !apperr.Is(err, apperr.InvalidInput) {
        t.Fatalf("rating out of range must be invalid, got %v", err)
    }
    list, err := e.catalog.ListReviews(ctx, 1, model.NewPage(1, 10))
    if err != nil || list.Total != 1 {
        t.Fatalf("list reviews: %+v %v", list, err)
    }
}

func TestProductReads(t *testing.T) {
    e := newTestEnv(t)
    seedProducts(e)
    ctx := context.Background()

    res, err := e.catalog.ListProducts(ctx, " ", model.NewPage(1, 2))
    if err != nil || res.Total != 3 || len(res.Items) != 2 || res.Items[0].ID != 3 {
        t.Fatalf("list: %+v %v", res, err)
    }
    if _, err := e.catalog.GetProduct(ctx, 404); !apperr.Is(err, apperr.NotFound) {
        t.Fatalf("expected not found, got %v", err)
    }
}
