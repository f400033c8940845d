package enums

import "fmt"

// ChangeOp is the row-level operation carried by a change-feed event.
type ChangeOp string

const (
	ChangeOpInsert ChangeOp = "insert"
	ChangeOpUpdate ChangeOp = "update"
	ChangeOpDelete ChangeOp = "delete"
)

var validChangeOps = []ChangeOp{
	ChangeOpInsert,
	ChangeOpUpdate,
	ChangeOpDelete,
}

// IsValid reports whether the value is a known ChangeOp.
func (o ChangeOp) IsValid() bool {
	for _, candidate := range validChangeOps {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseChangeOp converts raw input into a ChangeOp.
func ParseChangeOp(value string) (ChangeOp, error) {
	for _, candidate := range validChangeOps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid change op %q", value)
}

// FeedTable names the tables that publish change events.
type FeedTable string

const (
	TableOrders           FeedTable = "orders"
	TableMenuItems        FeedTable = "menu_items"
	TablePlatformSettings FeedTable = "platform_settings"
	TableReviews          FeedTable = "reviews"
	TableCookers          FeedTable = "cookers"
)

var validFeedTables = []FeedTable{
	TableOrders,
	TableMenuItems,
	TablePlatformSettings,
	TableReviews,
	TableCookers,
}

// IsValid reports whether the table publishes change events.
func (t FeedTable) IsValid() bool {
	for _, candidate := range validFeedTables {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseFeedTable converts raw input into a FeedTable.
func ParseFeedTable(value string) (FeedTable, error) {
	for _, candidate := range validFeedTables {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feed table %q", value)
}
