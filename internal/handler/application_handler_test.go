package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gatekeeper-api/internal/dto"
	"github.com/noah-isme/gatekeeper-api/internal/handler"
	"github.com/noah-isme/gatekeeper-api/internal/models"
	"github.com/noah-isme/gatekeeper-api/internal/service"
)

type mockApplicationService struct {
	lastOpen   dto.ApplicationOpenRequest
	openResp   dto.ApplicationResponse
	openErr    error
	submitResp dto.ApplicationResponse
	submitErr  error
}

func (m *mockApplicationService) Open(_ context.Context, req dto.ApplicationOpenRequest) (dto.ApplicationResponse, error) {
	m.lastOpen = req
	if m.openErr != nil {
		return m.openResp, m.openErr
	}
	return m.openResp, nil
}

func (m *mockApplicationService) Submit(_ context.Context, applicationID string, req dto.ApplicationSubmitRequest) (dto.ApplicationResponse, error) {
	if m.submitErr != nil {
		return dto.ApplicationResponse{}, m.submitErr
	}
	return m.submitResp, nil
}

func (m *mockApplicationService) Get(_ context.Context, applicationID string) (dto.ApplicationResponse, error) {
	return m.openResp, nil
}

type mockLookupService struct {
	application models.Application
	err         error
}

func (m *mockLookupService) Resolve(_ context.Context, req dto.LookupRequest) (models.Application, error) {
	if m.err != nil {
		return models.Application{}, m.err
	}
	return m.application, nil
}

func newApplicationApp(applications *mockApplicationService, lookup *mockLookupService) *fiber.App {
	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	app := fiber.New()
	group := app.Group("/api/v2/applications", func(c *fiber.Ctx) error {
		c.Locals("user_id", "400500600")
		return c.Next()
	})
	handler.NewApplicationHandler(applications, lookup, validate, logger).Register(group)
	return app
}

func TestApplicationHandler_OpenOverridesUserID(t *testing.T) {
	svc := &mockApplicationService{openResp: dto.ApplicationResponse{ID: "app-1", Status: models.ApplicationStatusPending}}
	app := newApplicationApp(svc, &mockLookupService{})

	resp := postJSON(t, app, "/api/v2/applications", dto.ApplicationOpenRequest{GuildID: "100200300", UserID: "999999999"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "400500600", svc.lastOpen.UserID, "the authenticated user always applies for themselves")
}

func TestApplicationHandler_OpenConflictReturnsExisting(t *testing.T) {
	svc := &mockApplicationService{
		openResp: dto.ApplicationResponse{ID: "app-1", Status: models.ApplicationStatusSubmitted},
		openErr:  service.ErrApplicationActive,
	}
	app := newApplicationApp(svc, &mockLookupService{})

	resp := postJSON(t, app, "/api/v2/applications", dto.ApplicationOpenRequest{GuildID: "100200300", UserID: "400500600"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var response struct {
		Success bool                    `json:"success"`
		Data    dto.ApplicationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, "app-1", response.Data.ID, "the live application rides along with the conflict")
}

func TestApplicationHandler_SubmitInvalidAnswers(t *testing.T) {
	svc := &mockApplicationService{submitErr: service.InvalidAnswersError{Detail: "missing property 'age'"}}
	app := newApplicationApp(svc, &mockLookupService{})

	resp := postJSON(t, app, "/api/v2/applications/app-1/submit", dto.ApplicationSubmitRequest{
		Answers: map[string]interface{}{"why": "friends"},
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestApplicationHandler_LookupErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"ambiguous", service.ErrAmbiguousLookup, fiber.StatusBadRequest},
		{"malformed", service.ErrMalformedLookupID, fiber.StatusBadRequest},
		{"missing", service.ErrApplicationNotFound, fiber.StatusNotFound},
		{"resolved", service.NotEligibleError{Status: models.ApplicationStatusRejected}, fiber.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newApplicationApp(&mockApplicationService{}, &mockLookupService{err: tc.err})

			req := httptest.NewRequest(http.MethodGet, "/api/v2/applications/lookup?guild_id=100200300&user_id=400500600", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestApplicationHandler_LookupSuccess(t *testing.T) {
	found := models.NewApplication("100200300", "400500600")
	found.Status = models.ApplicationStatusSubmitted
	app := newApplicationApp(&mockApplicationService{}, &mockLookupService{application: found})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/applications/lookup?guild_id=100200300&short_code="+found.ShortCode, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.ApplicationResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, found.ID, response.Data.ID)
}
