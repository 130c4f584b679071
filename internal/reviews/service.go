package reviews

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/businesssadigital-oss/backendpay/pkg/db/models"
	"github.com/businesssadigital-oss/backendpay/pkg/enums"
	pkgerrors "github.com/businesssadigital-oss/backendpay/pkg/errors"
	"github.com/businesssadigital-oss/backendpay/pkg/logger"
	"github.com/businesssadigital-oss/backendpay/pkg/outbox"
)

type reviewsRepository interface {
	List(ctx context.Context, productID string) ([]models.Review, error)
	Insert(tx *gorm.DB, review *models.Review) error
	RatingsForProduct(tx *gorm.DB, productID string) ([]float64, error)
}

type productsWriter interface {
	SaveRating(tx *gorm.DB, productID string, rating float64) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service records reviews and keeps the product's derived rating current.
type Service interface {
	ListReviews(ctx context.Context, productID string) ([]models.Review, error)
	AddReview(ctx context.Context, input AddReviewInput) (*models.Review, error)
}

// AddReviewInput is the write shape for a new review.
type AddReviewInput struct {
	ProductID string
	UserID    string
	UserName  string
	Rating    float64
	Comment   string
}

type service struct {
	repo     reviewsRepository
	products productsWriter
	tx       txRunner
	events   outboxEmitter
	logg     *logger.Logger
}

func NewService(repo reviewsRepository, products productsWriter, tx txRunner, events outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("products writer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, products: products, tx: tx, events: events, logg: logg}, nil
}

func (s *service) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	rows, err := s.repo.List(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return rows, nil
}

// AddReview stores the review and recomputes the product's mean rating,
// rounded to one decimal place, in the same transaction.
func (s *service) AddReview(ctx context.Context, input AddReviewInput) (*models.Review, error) {
	if strings.TrimSpace(input.ProductID) == "" || strings.TrimSpace(input.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId and userId are required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	review := &models.Review{
		ID:        "rev-" + uuid.NewString(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		UserName:  strings.TrimSpace(input.UserName),
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	if review.UserName == "" {
		review.UserName = "user"
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Insert(tx, review); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert review")
		}

		ratings, err := s.repo.RatingsForProduct(tx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product ratings")
		}
		sum := 0.0
		for _, r := range ratings {
			sum += r
		}
		avg := math.Round(sum/float64(len(ratings))*10) / 10

		// The product may not exist yet; the review still stands.
		if _, err := s.products.SaveRating(tx, input.ProductID, avg); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product rating")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionReviews,
			Operation:   enums.ChangeOperationInsert,
			DocumentKey: review.ID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit review event")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			Collection:  enums.CollectionProducts,
			Operation:   enums.ChangeOperationUpdate,
			DocumentKey: input.ProductID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithProductID(ctx, input.ProductID), map[string]any{
		"review_id": review.ID,
		"rating":    input.Rating,
	}), "review added")
	return review, nil
}
