package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/api/middleware"
	"github.com/angelmondragon/cookerz-backend/internal/auth"
	checkoutsvc "github.com/angelmondragon/cookerz-backend/internal/checkout"
	"github.com/angelmondragon/cookerz-backend/internal/menu"
	"github.com/angelmondragon/cookerz-backend/internal/orders"
	"github.com/angelmondragon/cookerz-backend/internal/settings"
	pkgcheckout "github.com/angelmondragon/cookerz-backend/pkg/checkout"
	"github.com/angelmondragon/cookerz-backend/pkg/config"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cookerz-backend/pkg/errors"
)

func asActor(req *http.Request, id uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(req.Context(), id.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, body io.Reader) (string, string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	return envelope.Error.Code, envelope.Error.Message
}

type stubAuthService struct {
	loginCalls int
	revoked    string
	err        error
}

func (s *stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.TokenResponse, error) {
	s.loginCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &auth.TokenResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.revoked = accessID
	return s.err
}

func (s *stubAuthService) Refresh(context.Context, auth.RefreshRequest) (*auth.TokenResponse, error) {
	return &auth.TokenResponse{AccessToken: "rotated"}, nil
}

type stubRegisterService struct {
	last auth.RegisterRequest
}

func (s *stubRegisterService) Register(_ context.Context, req auth.RegisterRequest) (*auth.TokenResponse, error) {
	s.last = req
	return &auth.TokenResponse{AccessToken: "access"}, nil
}

func TestAuthSignInValidatesBeforeService(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/sign-in", strings.NewReader(`{"email":"not-an-email","password":"x"}`))
	rec := httptest.NewRecorder()
	AuthSignIn(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, svc.loginCalls)
}

func TestAuthSignInSuccess(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/sign-in", strings.NewReader(`{"email":"cook@example.com","password":"Secret123!"}`))
	rec := httptest.NewRecorder()
	AuthSignIn(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data auth.TokenResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Equal(t, "access", envelope.Data.AccessToken)
}

func TestAuthSignInPropagatesUnauthorized(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/sign-in", strings.NewReader(`{"email":"cook@example.com","password":"wrong"}`))
	rec := httptest.NewRecorder()
	AuthSignIn(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	code, message := decodeError(t, rec.Body)
	require.Equal(t, string(pkgerrors.CodeUnauthorized), code)
	require.Equal(t, "invalid credentials", message)
}

func TestAuthSignUpCreated(t *testing.T) {
	svc := &stubRegisterService{}
	body := `{"email":"cook@example.com","password":"Secret123!","display_name":"Ana","role":"cooker","kitchen_name":"Ana's Kitchen"}`
	rec := httptest.NewRecorder()
	AuthSignUp(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sign-up", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, enums.UserRoleCooker, svc.last.Role)
	require.NotNil(t, svc.last.KitchenName)
}

func TestAuthSignOut(t *testing.T) {
	svc := &stubAuthService{}

	rec := httptest.NewRecorder()
	AuthSignOut(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sign-out", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/sign-out", nil)
	req = req.WithContext(middleware.WithAccessID(req.Context(), "access-1"))
	rec = httptest.NewRecorder()
	AuthSignOut(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "access-1", svc.revoked)
}

type stubSettingsService struct {
	settings.Service
	last settings.UpdateInput
}

func (s *stubSettingsService) Update(_ context.Context, _ uuid.UUID, input settings.UpdateInput) (*settings.SettingsDTO, error) {
	s.last = input
	return &settings.SettingsDTO{}, nil
}

func TestAdminUpdateSettingsDistinguishesNullFromAbsent(t *testing.T) {
	svc := &stubSettingsService{}

	req := asActor(httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"free_delivery_threshold":null}`)), uuid.New(), enums.UserRoleAdmin)
	rec := httptest.NewRecorder()
	AdminUpdateSettings(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.last.FreeDeliveryThreshold.Set)
	assert.Nil(t, svc.last.FreeDeliveryThreshold.Value)

	req = asActor(httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"service_fee":"1.50"}`)), uuid.New(), enums.UserRoleAdmin)
	rec = httptest.NewRecorder()
	AdminUpdateSettings(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.last.FreeDeliveryThreshold.Set)
	require.NotNil(t, svc.last.ServiceFee)
	assert.True(t, decimal.RequireFromString("1.5").Equal(*svc.last.ServiceFee))
}

type stubCheckoutService struct {
	customerID uuid.UUID
	input      checkoutsvc.PlaceOrderInput
}

func (s *stubCheckoutService) Quote(context.Context, []pkgcheckout.LineInput) (*checkoutsvc.QuoteResult, error) {
	return &checkoutsvc.QuoteResult{}, nil
}

func (s *stubCheckoutService) PlaceOrder(_ context.Context, customerID uuid.UUID, input checkoutsvc.PlaceOrderInput) (*orders.OrderDTO, error) {
	s.customerID = customerID
	s.input = input
	return &orders.OrderDTO{ID: uuid.New(), CustomerID: customerID}, nil
}

func TestCheckoutPlaceOrderForwardsSubmittedTotals(t *testing.T) {
	svc := &stubCheckoutService{}
	customerID := uuid.New()
	itemID := uuid.New()
	body := `{"lines":[{"menu_item_id":"` + itemID.String() + `","quantity":2}],"payment_method":"cash","address":"1 Main St","total":"25.00"}`

	req := asActor(httptest.NewRequest(http.MethodPost, "/checkout/orders", strings.NewReader(body)), customerID, enums.UserRoleCustomer)
	rec := httptest.NewRecorder()
	CheckoutPlaceOrder(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, customerID, svc.customerID)
	require.Len(t, svc.input.Lines, 1)
	require.Equal(t, itemID, svc.input.Lines[0].MenuItemID)
	require.Equal(t, 2, svc.input.Lines[0].Quantity)
	require.Nil(t, svc.input.Submitted.Subtotal)
	require.NotNil(t, svc.input.Submitted.Total)
	require.True(t, decimal.RequireFromString("25").Equal(*svc.input.Submitted.Total))
}

type stubMediaService struct {
	received []byte
	err      error
}

func (s *stubMediaService) UploadMenuImage(_ context.Context, cookerID, itemID uuid.UUID, body io.Reader) (*menu.MenuItemDTO, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	s.received = data
	if s.err != nil {
		return nil, s.err
	}
	return &menu.MenuItemDTO{ID: itemID, CookerID: cookerID}, nil
}

func multipartBody(t *testing.T, field string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("caption", "ignored"))
	part, err := writer.CreateFormFile(field, "dish.png")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func serveUpload(svc *stubMediaService, itemID string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Post("/menu/{itemID}/image", CookerMenuImageUpload(svc, 1<<20, nil))
	req := httptest.NewRequest(http.MethodPost, "/menu/"+itemID+"/image", body)
	req.Header.Set("Content-Type", contentType)
	req = asActor(req, uuid.New(), enums.UserRoleCooker)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMenuImageUploadStreamsImagePart(t *testing.T) {
	svc := &stubMediaService{}
	body, contentType := multipartBody(t, "image", []byte("png-bytes"))

	rec := serveUpload(svc, uuid.NewString(), body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []byte("png-bytes"), svc.received)
}

func TestMenuImageUploadErrors(t *testing.T) {
	body, contentType := multipartBody(t, "photo", []byte("png-bytes"))
	rec := serveUpload(&stubMediaService{}, uuid.NewString(), body, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveUpload(&stubMediaService{}, uuid.NewString(), strings.NewReader(`{}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType = multipartBody(t, "image", []byte("png-bytes"))
	svc := &stubMediaService{err: pkgerrors.New(pkgerrors.CodeContentRejected, "image must show food")}
	rec = serveUpload(svc, uuid.NewString(), body, contentType)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	handler := HealthReady(cfg, nil,
		ReadinessCheck{Name: "db", Ping: func(context.Context) error { return nil }},
		ReadinessCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	code, _ := decodeError(t, rec.Body)
	require.Equal(t, string(pkgerrors.CodeDependency), code)
}
