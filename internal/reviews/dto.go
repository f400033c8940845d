package reviews

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

const maxCommentLength = 1000

type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	CookerID   uuid.UUID `json:"cooker_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromModel(m models.Review) ReviewDTO {
	return ReviewDTO{
		ID:         m.ID,
		OrderID:    m.OrderID,
		CookerID:   m.CookerID,
		CustomerID: m.CustomerID,
		Rating:     m.Rating,
		Comment:    m.Comment,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

// CookerRatingDTO is the change image published for cookers when their
// rating aggregate moves.
type CookerRatingDTO struct {
	ID            uuid.UUID       `json:"id"`
	KitchenName   string          `json:"kitchen_name"`
	RatingAverage decimal.Decimal `json:"rating_average"`
	RatingCount   int             `json:"rating_count"`
}

func cookerImage(m models.Cooker) CookerRatingDTO {
	return CookerRatingDTO{
		ID:            m.ID,
		KitchenName:   m.KitchenName,
		RatingAverage: m.RatingAverage,
		RatingCount:   m.RatingCount,
	}
}

type CreateInput struct {
	OrderID uuid.UUID
	Rating  int
	Comment *string
}

func (in *CreateInput) normalize() error {
	if in.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order_id is required").
			WithDetails(map[string]any{"field": "order_id"})
	}
	if in.Rating < 1 || in.Rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"field": "rating", "value": in.Rating})
	}
	if in.Comment != nil {
		trimmed := strings.TrimSpace(*in.Comment)
		if trimmed == "" {
			in.Comment = nil
			return nil
		}
		if utf8.RuneCountInString(trimmed) > maxCommentLength {
			return pkgerrors.New(pkgerrors.CodeValidation, "comment is too long").
				WithDetails(map[string]any{"field": "comment", "max": maxCommentLength})
		}
		in.Comment = &trimmed
	}
	return nil
}
