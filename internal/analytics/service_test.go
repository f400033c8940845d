package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

type stubRepo struct {
	calls   int
	windows []Window
	orders  []OrderRecord
	err     error
}

func (s *stubRepo) ListCookerOrders(_ context.Context, _ uuid.UUID, window Window) ([]OrderRecord, error) {
	s.calls++
	s.windows = append(s.windows, window)
	return s.orders, s.err
}

func newStubService(t *testing.T, repo *stubRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)
	return svc
}

func TestServiceRequiresPrincipal(t *testing.T) {
	repo := &stubRepo{}
	svc := newStubService(t, repo)
	ctx := context.Background()

	_, err := svc.Monthly(ctx, uuid.Nil, 3, 2025)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	require.Equal(t, pkgerrors.MessageNotAuthenticated, pkgerrors.As(err).Message())

	_, err = svc.Weekly(ctx, uuid.Nil, 1, 2025, WeekSchemeLegacy)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Daily(ctx, uuid.Nil, 1, 1, 2025)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.Zero(t, repo.calls)
}

func TestServiceValidatesBeforeLoading(t *testing.T) {
	repo := &stubRepo{}
	svc := newStubService(t, repo)
	ctx := context.Background()
	cooker := uuid.New()

	for _, month := range []int{0, 13} {
		_, err := svc.Monthly(ctx, cooker, month, 2025)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "month %d", month)
	}
	for _, week := range []int{0, 53} {
		_, err := svc.Weekly(ctx, cooker, week, 2025, WeekSchemeLegacy)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "week %d", week)
	}
	_, err := svc.Daily(ctx, cooker, 32, 1, 2025)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.Daily(ctx, cooker, 1, 13, 2025)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.Zero(t, repo.calls)
}

func TestServiceWeeklySchemes(t *testing.T) {
	repo := &stubRepo{}
	svc := newStubService(t, repo)
	ctx := context.Background()
	cooker := uuid.New()

	report, err := svc.Weekly(ctx, cooker, 53, 2026, WeekSchemeISO)
	require.NoError(t, err)
	require.Equal(t, 53, report.Week)
	require.Equal(t, time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC), report.Start)

	_, err = svc.Weekly(ctx, cooker, 2, 2025, "")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC), repo.windows[1].Start)
}

func TestServiceWrapsRepositoryErrors(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection reset")}
	svc := newStubService(t, repo)

	_, err := svc.Monthly(context.Background(), uuid.New(), 3, 2025)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestServiceSkipsMissingTimestamps(t *testing.T) {
	repo := &stubRepo{orders: []OrderRecord{
		order(nil, item(1, "9.99")),
		order(at(2025, time.March, 10, 8, 0), item(2, "1.50")),
	}}
	svc := newStubService(t, repo)

	report, err := svc.Monthly(context.Background(), uuid.New(), 3, 2025)
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalOrders)
	require.Equal(t, "3.00", report.TotalEarnings.StringFixed(2))
}

func TestRepositoryListCookerOrders(t *testing.T) {
	conn := dbtest.Open(t)
	cooker := dbtest.SeedCooker(t, conn)
	other := dbtest.SeedCooker(t, conn)
	customer := dbtest.SeedUser(t, conn, enums.UserRoleCustomer)

	soup := dbtest.SeedMenuItem(t, conn, cooker.ID, "12.00", "3.005", 50)
	bread := dbtest.SeedMenuItem(t, conn, cooker.ID, "4.00", "1.00", 50)
	foreign := dbtest.SeedMenuItem(t, conn, other.ID, "9.00", "2.00", 50)

	inside := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	dbtest.SeedOrder(t, conn, customer.ID, enums.OrderStatusDelivered, inside,
		dbtest.OrderLine{Item: soup, Quantity: 2}, dbtest.OrderLine{Item: bread, Quantity: 1})
	dbtest.SeedOrder(t, conn, customer.ID, enums.OrderStatusCreated, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		dbtest.OrderLine{Item: soup, Quantity: 1})
	dbtest.SeedOrder(t, conn, customer.ID, enums.OrderStatusCreated, inside,
		dbtest.OrderLine{Item: foreign, Quantity: 1})

	repo := NewRepository(conn)
	records, err := repo.ListCookerOrders(context.Background(), cooker.ID, MonthWindow(3, 2025))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Items, 2)

	svc, err := NewService(ServiceParams{Repo: repo})
	require.NoError(t, err)
	report, err := svc.Monthly(context.Background(), cooker.ID, 3, 2025)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 0, 0}, monthCounts(*report))
	require.Equal(t, "7.01", report.Earnings[0].Earning.StringFixed(2))
}
