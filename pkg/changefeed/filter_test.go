package changefeed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

func orderEvent(op enums.ChangeOp, cookerID uuid.UUID) Event {
	image := json.RawMessage(`{"id":"` + uuid.NewString() + `","cooker_id":"` + cookerID.String() + `","status":"created","total":70.5}`)
	e := Event{
		ID:         uuid.New(),
		Table:      enums.TableOrders,
		Op:         op,
		RowID:      uuid.New(),
		OccurredAt: time.Now().UTC(),
	}
	if op == enums.ChangeOpDelete {
		e.Old = image
	} else {
		e.New = image
	}
	return e
}

func TestFilterMatches(t *testing.T) {
	cookerID := uuid.New()

	byCooker := Filter{Table: enums.TableOrders, Column: "cooker_id", Value: cookerID.String()}
	assert.True(t, byCooker.Matches(orderEvent(enums.ChangeOpInsert, cookerID)))
	assert.True(t, byCooker.Matches(orderEvent(enums.ChangeOpDelete, cookerID)))
	assert.False(t, byCooker.Matches(orderEvent(enums.ChangeOpInsert, uuid.New())))

	insertsOnly := Filter{Table: enums.TableOrders, Op: enums.ChangeOpInsert}
	assert.True(t, insertsOnly.Matches(orderEvent(enums.ChangeOpInsert, cookerID)))
	assert.False(t, insertsOnly.Matches(orderEvent(enums.ChangeOpUpdate, cookerID)))

	otherTable := Filter{Table: enums.TableMenuItems}
	assert.False(t, otherTable.Matches(orderEvent(enums.ChangeOpInsert, cookerID)))

	byTotal := Filter{Table: enums.TableOrders, Column: "total", Value: "70.5"}
	assert.True(t, byTotal.Matches(orderEvent(enums.ChangeOpUpdate, cookerID)))

	missingColumn := Filter{Table: enums.TableOrders, Column: "nope", Value: "x"}
	assert.False(t, missingColumn.Matches(orderEvent(enums.ChangeOpUpdate, cookerID)))
}

func TestFilterKey(t *testing.T) {
	id := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	assert.Equal(t, "orders:*", Filter{Table: enums.TableOrders}.Key())
	assert.Equal(t, "orders:update", Filter{Table: enums.TableOrders, Op: enums.ChangeOpUpdate}.Key())
	assert.Equal(t,
		"orders:*:cooker_id=f47ac10b-58cc-4372-a567-0e02b2c3d479",
		Filter{Table: enums.TableOrders, Column: "cooker_id", Value: id.String()}.Key(),
	)
}

func TestFilterValidate(t *testing.T) {
	require.NoError(t, Filter{Table: enums.TableReviews}.Validate())
	require.Error(t, Filter{Table: "carts"}.Validate())
	require.Error(t, Filter{Table: enums.TableOrders, Op: "upsert"}.Validate())
	require.Error(t, Filter{Table: enums.TableOrders, Value: "x"}.Validate())
}

func TestDecode(t *testing.T) {
	event := orderEvent(enums.ChangeOpUpdate, uuid.New())
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	decoded, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, enums.ChangeOpUpdate, decoded.Op)

	var row struct {
		Status string `json:"status"`
	}
	require.NoError(t, decoded.DecodeImage(&row))
	assert.Equal(t, "created", row.Status)

	_, err = Decode([]byte(`{"id":"` + uuid.NewString() + `","table":"orders","op":"insert","row_id":"` + uuid.NewString() + `"}`))
	require.Error(t, err)

	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}
