package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cookerz-backend/api/responses"
	"github.com/angelmondragon/cookerz-backend/api/validators"
	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
	"github.com/angelmondragon/cookerz-backend/pkg/logger"
	"github.com/angelmondragon/cookerz-backend/pkg/outbox"
	"github.com/angelmondragon/cookerz-backend/pkg/pagination"
)

// DeadLetters reads change events the outbox publisher stopped retrying.
type DeadLetters interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type deadLetterDTO struct {
	EventID      uuid.UUID                  `json:"event_id"`
	Table        enums.FeedTable            `json:"table"`
	Op           enums.ChangeOp             `json:"op"`
	RowID        uuid.UUID                  `json:"row_id"`
	Reason       enums.OutboxDLQErrorReason `json:"reason"`
	Error        *string                    `json:"error,omitempty"`
	AttemptCount int                        `json:"attempt_count"`
	FailedAt     time.Time                  `json:"failed_at"`
	Payload      json.RawMessage            `json:"payload,omitempty"`
}

func toDeadLetterDTO(row models.OutboxDLQ, withPayload bool) deadLetterDTO {
	dto := deadLetterDTO{
		EventID:      row.EventID,
		Table:        row.Source,
		Op:           row.Op,
		RowID:        row.RowID,
		Reason:       row.ErrorReason,
		Error:        row.ErrorMessage,
		AttemptCount: row.AttemptCount,
		FailedAt:     row.FailedAt,
	}
	if withPayload {
		dto.Payload = row.Payload
	}
	return dto
}

// AdminDeadLetters lists dead-lettered change events, newest first.
// Optional filters: table, reason, limit.
func AdminDeadLetters(repo DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := outbox.DLQFilter{Limit: limit}

		if raw := strings.TrimSpace(r.URL.Query().Get("table")); raw != "" {
			table, err := enums.ParseFeedTable(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid table"))
				return
			}
			filter.Source = table
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
			reason := enums.OutboxDLQErrorReason(raw)
			if !reason.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid reason"))
				return
			}
			filter.Reason = reason
		}

		rows, err := repo.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		out := make([]deadLetterDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, toDeadLetterDTO(row, false))
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminDeadLetter returns one dead-lettered event including its payload.
func AdminDeadLetter(repo DeadLetters, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := validators.ParseUUIDParam(r, "eventID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := repo.FindByEventID(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dead letter"))
			return
		}
		if row == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found"))
			return
		}
		responses.WriteSuccess(w, toDeadLetterDTO(*row, true))
	}
}
