package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingkod/internal/audit"
	"lingkod/internal/hr/models"
	hrservice "lingkod/internal/hr/service"
	"lingkod/internal/platform/middleware"
	"lingkod/internal/ratelimit"
	dErrors "lingkod/pkg/domain-errors"
	"lingkod/pkg/testutil"
)

type fakeService struct {
	submitted   []models.Application
	submitActor audit.Actor
	receipt     *hrservice.SubmissionReceipt
	submitErr   error

	applicant *models.ApplicantView
	getErr    error
}

func (f *fakeService) SubmitApplication(_ context.Context, cmd models.Application, actor audit.Actor) (*hrservice.SubmissionReceipt, error) {
	f.submitted = append(f.submitted, cmd)
	f.submitActor = actor
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.receipt, nil
}

func (f *fakeService) GetApplicant(context.Context, string) (*models.ApplicantView, []string, error) {
	if f.getErr != nil {
		return nil, nil, f.getErr
	}
	return f.applicant, []string{"plumbing"}, nil
}

func (f *fakeService) ListApplicants(context.Context, string, string, int) ([]*models.ApplicantView, error) {
	return []*models.ApplicantView{f.applicant}, nil
}

func (f *fakeService) PostAnnouncement(_ context.Context, lineID, title, body string, _ audit.Actor) (*models.Announcement, error) {
	return &models.Announcement{ID: "ann-1", LineID: lineID, Title: title, Body: body}, nil
}

func (f *fakeService) ListAnnouncements(context.Context, string, string, int) ([]*models.Announcement, error) {
	return nil, nil
}

type staticValidator struct{}

func (staticValidator) ValidateToken(token string) (*middleware.ActorClaims, error) {
	if token != "valid-token" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.ActorClaims{ActorID: "hr-officer-1", LineID: "line-1", Role: "hr"}, nil
}

func newRouter(service *fakeService, opts ...Option) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(service, logger, staticValidator{}, opts...).Register(r)
	return r
}

func submitBody() map[string]any {
	return map[string]any{
		"line_id":     "line-1",
		"position_id": "pos-1",
		"applicant": map[string]any{
			"first_name":    "Maria",
			"last_name":     "Reyes",
			"birth_date":    "1991-04-17",
			"email":         "maria.reyes@example.ph",
			"phone":         "+639171234567",
			"government_id": "CRN-0111-2223334",
		},
		"skills": []string{"records management"},
	}
}

func TestSubmitApplication_Created(t *testing.T) {
	service := &fakeService{receipt: &hrservice.SubmissionReceipt{ApplicantID: "app-1"}}
	router := newRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/hr/applications", submitBody())
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	resp := testutil.UnmarshalResponse[struct {
		ApplicantID string `json:"applicant_id"`
	}](t, rr)
	assert.Equal(t, "app-1", resp.ApplicantID)

	require.Len(t, service.submitted, 1)
	assert.Equal(t, "Maria", service.submitted[0].PII.FirstName)
	assert.Equal(t, "CRN-0111-2223334", service.submitted[0].PII.GovernmentID)
}

func TestSubmitApplication_PartialFailureIsAccepted(t *testing.T) {
	service := &fakeService{receipt: &hrservice.SubmissionReceipt{
		ApplicantID:     "app-1",
		PartialFailures: []string{"confirmation email"},
	}}
	router := newRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/hr/applications", submitBody())
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	resp := testutil.UnmarshalResponse[struct {
		PartialFailures []string `json:"partial_failures"`
	}](t, rr)
	assert.Equal(t, []string{"confirmation email"}, resp.PartialFailures)
}

func TestSubmitApplication_MalformedBody(t *testing.T) {
	router := newRouter(&fakeService{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/hr/applications", nil)
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestSubmitApplication_ValidationErrorFromService(t *testing.T) {
	service := &fakeService{submitErr: dErrors.New(dErrors.CodeValidation, "first name is required")}
	router := newRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/hr/applications", submitBody())
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation")
}

func TestSubmitApplication_RateLimited(t *testing.T) {
	service := &fakeService{receipt: &hrservice.SubmissionReceipt{ApplicantID: "app-1"}}
	limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := newRouter(service, WithSubmissionLimit(ratelimit.Middleware(limiter, logger)))

	first := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/hr/applications", submitBody()))
	require.Equal(t, http.StatusCreated, first.Code)

	second := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/hr/applications", submitBody()))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestGetApplicant_RequiresAuth(t *testing.T) {
	router := newRouter(&fakeService{})

	req := testutil.NewJSONRequest(t, http.MethodGet, "/hr/applicants/app-1", nil)
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetApplicant_ReturnsDecryptedView(t *testing.T) {
	service := &fakeService{applicant: &models.ApplicantView{
		ID:         "app-1",
		LineID:     "line-1",
		PositionID: "pos-1",
		PII:        models.PII{FirstName: "Maria", LastName: "Reyes"},
		CreatedAt:  time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
	}}
	router := newRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/hr/applicants/app-1", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[struct {
		ID        string `json:"id"`
		Applicant struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"applicant"`
		Skills []string `json:"skills"`
	}](t, rr)
	assert.Equal(t, "app-1", resp.ID)
	assert.Equal(t, "Maria", resp.Applicant.FirstName)
	assert.Equal(t, []string{"plumbing"}, resp.Skills)
}

func TestGetApplicant_NotFound(t *testing.T) {
	service := &fakeService{getErr: dErrors.New(dErrors.CodeNotFound, "applicant not found")}
	router := newRouter(service)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/hr/applicants/missing", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := testutil.DoRequest(router, req)

	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestPostAnnouncement_UsesActorLine(t *testing.T) {
	router := newRouter(&fakeService{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/hr/announcements", map[string]any{
		"title": "Office closure",
		"body":  "Closed on Monday for the fiesta.",
	})
	req.Header.Set("Authorization", "Bearer valid-token")
	rr := testutil.DoRequest(router, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	resp := testutil.UnmarshalResponse[struct {
		LineID string `json:"line_id"`
		Title  string `json:"title"`
	}](t, rr)
	assert.Equal(t, "line-1", resp.LineID)
	assert.Equal(t, "Office closure", resp.Title)
}

func TestActorFromContext(t *testing.T) {
	service := &fakeService{receipt: &hrservice.SubmissionReceipt{ApplicantID: "app-1"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(service, logger, staticValidator{})

	req := testutil.NewJSONRequest(t, http.MethodPost, "/hr/applications", submitBody())
	req = testutil.WithActor(req, "hr-officer-1", "line-1")
	req = testutil.WithRole(req, "hr")
	rr := testutil.DoRequest(http.HandlerFunc(h.handleSubmitApplication), req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "hr-officer-1", service.submitActor.ID)
	assert.Equal(t, "line-1", service.submitActor.LineID)
}
