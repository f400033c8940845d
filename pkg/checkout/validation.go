// Package checkout holds the cart line rules shared by quoting and order placement.
package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

// LineInput is one cart line as submitted by a client.
type LineInput struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// ItemSnapshot is the server-side view of a menu item at checkout time.
type ItemSnapshot struct {
	ID          uuid.UUID
	CookerID    uuid.UUID
	Title       string
	Price       decimal.Decimal
	Profit      decimal.Decimal
	Stock       int
	IsAvailable bool
}

const (
	ReasonUnavailable       = "unavailable"
	ReasonInsufficientStock = "insufficient_stock"
)

// LineViolation is returned to callers when a line cannot be fulfilled.
type LineViolation struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Title        string    `json:"title,omitempty"`
	Reason       string    `json:"reason"`
	RequestedQty int       `json:"requested_qty"`
	AvailableQty int       `json:"available_qty"`
}

// NormalizeLines rejects empty carts and non-positive quantities, and merges
// repeated menu items into one line while keeping first-seen order.
func NormalizeLines(lines []LineInput) ([]LineInput, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]LineInput, 0, len(lines))
	for i, line := range lines {
		if line.MenuItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].menu_item_id is required", i))
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("items[%d].quantity must be at least 1", i))
		}
		if pos, ok := index[line.MenuItemID]; ok {
			merged[pos].Quantity += line.Quantity
			continue
		}
		index[line.MenuItemID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// MenuItemIDs lists the ids referenced by lines.
func MenuItemIDs(lines []LineInput) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.MenuItemID)
	}
	return ids
}

// ValidateLines checks every line against the loaded items, stock included,
// and returns the single cooker they all belong to.
func ValidateLines(lines []LineInput, items map[uuid.UUID]ItemSnapshot) (uuid.UUID, error) {
	var cookerID uuid.UUID
	var violations []LineViolation
	for _, line := range lines {
		item, ok := items[line.MenuItemID]
		if !ok {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found").WithDetails(map[string]any{
				"menu_item_id": line.MenuItemID,
			})
		}
		if cookerID == uuid.Nil {
			cookerID = item.CookerID
		} else if item.CookerID != cookerID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must come from the same cooker")
		}
		if !item.IsAvailable {
			violations = append(violations, LineViolation{
				MenuItemID:   item.ID,
				Title:        item.Title,
				Reason:       ReasonUnavailable,
				RequestedQty: line.Quantity,
			})
			continue
		}
		if item.Stock < line.Quantity {
			violations = append(violations, LineViolation{
				MenuItemID:   item.ID,
				Title:        item.Title,
				Reason:       ReasonInsufficientStock,
				RequestedQty: line.Quantity,
				AvailableQty: item.Stock,
			})
		}
	}
	if len(violations) > 0 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%d item(s) cannot be fulfilled", len(violations))).WithDetails(map[string]any{
			"violations": violations,
		})
	}
	return cookerID, nil
}
