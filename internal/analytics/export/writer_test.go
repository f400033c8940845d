package export

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/angelmondragon/cookerz-backend/pkg/bigquery"
)

type insertCall struct {
	table    string
	rowCount int
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	idx := len(f.calls)
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	if idx < len(f.responses) {
		return f.responses[idx]
	}
	return nil
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	writer, err := NewWriter(&pkgbigquery.Client{}, WriterConfig{
		OrderFactsTable: "order_facts",
		RetryPolicy:     RetryPolicy{InitialBackoff: time.Millisecond, MaximumBackoff: 2 * time.Millisecond},
	})
	require.NoError(t, err)
	fake := &fakeInserter{}
	writer.client = fake
	return writer, fake
}

func TestNewWriterValidation(t *testing.T) {
	_, err := NewWriter(nil, WriterConfig{OrderFactsTable: "order_facts"})
	require.Error(t, err)
	_, err = NewWriter(&pkgbigquery.Client{}, WriterConfig{OrderFactsTable: " "})
	require.Error(t, err)
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusServiceUnavailable}, nil}

	require.NoError(t, writer.InsertOrderFact(context.Background(), OrderFactRow{EventID: "1"}))
	require.Len(t, fake.calls, 2)
	require.Equal(t, "order_facts", fake.calls[1].table)
	require.Empty(t, writer.buffer)
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	require.Error(t, writer.InsertOrderFact(context.Background(), OrderFactRow{EventID: "1"}))
	require.Len(t, fake.calls, 1)
}

func TestWriterGivesUpAfterMaxAttempts(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	unavailable := status.Error(codes.Unavailable, "try later")
	fake.responses = []error{unavailable, unavailable, unavailable, unavailable}

	err := writer.InsertOrderFact(context.Background(), OrderFactRow{EventID: "1"})
	require.Error(t, err)
	require.Len(t, fake.calls, defaultMaxAttempts)
}

func TestWriterBatchingAndFlush(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	require.NoError(t, writer.InsertOrderFact(context.Background(), OrderFactRow{EventID: "1"}))
	require.Empty(t, fake.calls)
	require.NoError(t, writer.InsertOrderFact(context.Background(), OrderFactRow{EventID: "2"}))
	require.Len(t, fake.calls, 1)
	require.Equal(t, 2, fake.calls[0].rowCount)

	require.NoError(t, writer.InsertOrderFact(context.Background(), OrderFactRow{EventID: "3"}))
	require.NoError(t, writer.Flush(context.Background()))
	require.Len(t, fake.calls, 2)
	require.NoError(t, writer.Flush(context.Background()))
	require.Len(t, fake.calls, 2)
}

func TestIsRetryable(t *testing.T) {
	require.False(t, isRetryableBigQueryError(nil))
	require.False(t, isRetryableBigQueryError(errors.New("plain")))
	require.True(t, isRetryableBigQueryError(&googleapi.Error{Code: http.StatusTooManyRequests}))
	require.False(t, isRetryableBigQueryError(status.Error(codes.InvalidArgument, "bad")))
}

func TestCents(t *testing.T) {
	require.Equal(t, int64(1999), Cents(decimal.RequireFromString("19.99")))
	require.Equal(t, int64(701), Cents(decimal.RequireFromString("7.005")))
	require.Equal(t, int64(0), Cents(decimal.Zero))
}
