package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kairon/internal/api"
	"kairon/internal/config"
	"kairon/internal/database"
	"kairon/internal/models"
	"kairon/internal/session"
	"kairon/internal/slots"
	"kairon/internal/wizard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	staticToken = "dev-token"
	jwtSecret   = "test-secret"
)

func testConfig() config.MockServerConfig {
	return config.MockServerConfig{
		Tokens:          []string{staticToken},
		OpeningTime:     "09:00",
		ClosingTime:     "18:00",
		SlotStepMins:    30,
		JWTSecret:       jwtSecret,
		PublicCompanyID: "company-1",
	}
}

func setupServer(t *testing.T, cfg config.MockServerConfig) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.ApplySeed(context.Background(), database.DefaultSeed()))

	ts := httptest.NewServer(NewServer(cfg, db, &logger).Router())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(baseURL, token string) *api.Client {
	var src oauth2.TokenSource
	if token != "" {
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}
	return api.NewClient(config.APIConfig{BaseURL: baseURL, TimeoutSeconds: 5}, src, nil)
}

func tomorrow() models.Date {
	return models.DateOf(time.Now()).AddDays(1)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := setupServer(t, testConfig())
	client := newClient(ts.URL, "")
	ctx := context.Background()

	services, err := client.ListServices(ctx, "")
	require.NoError(t, err)
	assert.Len(t, services, 4)

	ivan, err := client.ListServices(ctx, "pro-ivan")
	require.NoError(t, err)
	require.Len(t, ivan, 1)
	assert.Equal(t, "svc-haircut", ivan[0].ID)

	pros, err := client.ListProfessionals(ctx)
	require.NoError(t, err)
	assert.Len(t, pros, 3)
}

func TestAvailabilityEndpoint(t *testing.T) {
	ts := setupServer(t, testConfig())
	client := newClient(ts.URL, "")
	ctx := context.Background()

	got, err := client.GetAvailability(ctx, "svc-haircut", "pro-anna", tomorrow())
	require.NoError(t, err)
	require.Len(t, got, 18)
	assert.Equal(t, "09:00", got[0].Time)
	assert.Equal(t, "17:30", got[17].Time)

	// 90 минут: последний слот 16:30
	coloring, err := client.GetAvailability(ctx, "svc-coloring", "pro-anna", tomorrow())
	require.NoError(t, err)
	assert.Equal(t, "16:30", coloring[len(coloring)-1].Time)

	_, err = client.GetAvailability(ctx, "svc-haircut", "pro-nobody", tomorrow())
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	_, err = client.GetAvailability(ctx, "svc-unknown", "pro-anna", tomorrow())
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestPublicBooking(t *testing.T) {
	ts := setupServer(t, testConfig())
	client := newClient(ts.URL, "")
	ctx := context.Background()
	date := tomorrow()

	req := models.PublicAppointmentRequest{
		ServiceID:      "svc-haircut",
		ProfessionalID: "pro-ivan",
		Date:           date.String(),
		Time:           "10:00",
		ClientName:     "Jane Doe",
		ClientEmail:    "jane@example.com",
		ClientPhone:    "555-0100",
	}
	appt, err := client.CreatePublicAppointment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.Equal(t, "Ivan", appt.Professional.Name)
	assert.Equal(t, 35.0, appt.TotalPrice)

	avail, err := client.GetAvailability(ctx, "svc-haircut", "pro-ivan", date)
	require.NoError(t, err)
	for _, s := range avail {
		assert.Equal(t, s.Time != "10:00", s.Available, s.Time)
	}

	t.Run("double booking is a conflict with a message", func(t *testing.T) {
		_, err := client.CreatePublicAppointment(ctx, req)
		require.Error(t, err)
		assert.True(t, api.IsStatus(err, http.StatusConflict))
		assert.Equal(t, "The selected time is no longer available", api.UserMessage(err))
	})

	t.Run("offline service", func(t *testing.T) {
		r := req
		r.ServiceID, r.ProfessionalID = "svc-consult", "pro-anna"
		_, err := client.CreatePublicAppointment(ctx, r)
		assert.True(t, api.IsStatus(err, http.StatusUnprocessableEntity))
	})

	t.Run("professional does not perform service", func(t *testing.T) {
		r := req
		r.ProfessionalID = "pro-maria"
		_, err := client.CreatePublicAppointment(ctx, r)
		assert.True(t, api.IsStatus(err, http.StatusUnprocessableEntity))
	})

	t.Run("off-grid time", func(t *testing.T) {
		r := req
		r.Time = "10:10"
		_, err := client.CreatePublicAppointment(ctx, r)
		assert.True(t, api.IsStatus(err, http.StatusConflict))
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := client.CreatePublicAppointment(ctx, models.PublicAppointmentRequest{ServiceID: "svc-haircut"})
		require.Error(t, err)
		assert.True(t, api.IsStatus(err, http.StatusBadRequest))
		assert.Contains(t, api.UserMessage(err), "professionalId")
	})
}

func TestAuthRequired(t *testing.T) {
	ts := setupServer(t, testConfig())
	ctx := context.Background()

	_, err := newClient(ts.URL, "").ListAppointments(ctx, models.AppointmentFilter{})
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))

	_, err = newClient(ts.URL, "wrong").ListServices(ctx, "")
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))

	appts, err := newClient(ts.URL, staticToken).ListAppointments(ctx, models.AppointmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestAuthDisabledTrustsEveryone(t *testing.T) {
	cfg := testConfig()
	cfg.Tokens = nil
	cfg.JWTSecret = ""
	ts := setupServer(t, cfg)

	_, err := newClient(ts.URL, "").ListAppointments(context.Background(), models.AppointmentFilter{})
	assert.NoError(t, err)
}

func TestJWTScopesCompany(t *testing.T) {
	ts := setupServer(t, testConfig())
	ctx := context.Background()
	date := tomorrow()

	token, err := session.Issue(jwtSecret, "company-1", "pro-anna", time.Hour)
	require.NoError(t, err)
	client := newClient(ts.URL, token)

	start, err := models.NaiveLocalISO(date, "11:00")
	require.NoError(t, err)
	created, err := client.CreateAppointment(ctx, models.CreateAppointmentRequest{
		CompanyID:      "company-1",
		ProfessionalID: "pro-anna",
		ServiceIDs:     []string{"svc-haircut", "svc-coloring"},
		StartTime:      start,
		ClientName:     "Bob",
		ClientPhone:    "555-0101",
	})
	require.NoError(t, err)
	assert.Equal(t, 115.0, created.TotalPrice)
	assert.Len(t, created.Services, 2)
	assert.Equal(t, 2*time.Hour, created.EndTime.Sub(created.StartTime.Time))

	_, err = client.CreateAppointment(ctx, models.CreateAppointmentRequest{
		CompanyID: "company-2", ProfessionalID: "pro-anna", ServiceIDs: []string{"svc-haircut"},
		StartTime: start, ClientName: "Eve", ClientPhone: "1",
	})
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	_, err = client.ListAppointments(ctx, models.AppointmentFilter{CompanyID: "company-2"})
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	appts, err := client.ListAppointments(ctx, models.AppointmentFilter{Date: date})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, created.ID, appts[0].ID)

	expired, err := session.Issue(jwtSecret, "company-1", "pro-anna", -time.Minute)
	require.NoError(t, err)
	_, err = newClient(ts.URL, expired).ListAppointments(ctx, models.AppointmentFilter{})
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
}

func TestStatusTransitions(t *testing.T) {
	ts := setupServer(t, testConfig())
	ctx := context.Background()
	client := newClient(ts.URL, staticToken)

	appt, err := client.CreatePublicAppointment(ctx, models.PublicAppointmentRequest{
		ServiceID: "svc-manicure", ProfessionalID: "pro-maria",
		Date: tomorrow().String(), Time: "09:00",
		ClientName: "Ann", ClientPhone: "1",
	})
	require.NoError(t, err)

	confirmed, err := client.UpdateAppointmentStatus(ctx, appt.ID, models.StatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)

	_, err = client.UpdateAppointmentStatus(ctx, appt.ID, models.StatusPending, "")
	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusConflict))
	assert.Equal(t, "Cannot change status from CONFIRMED to PENDING", api.UserMessage(err))

	completed, err := client.UpdateAppointmentStatus(ctx, appt.ID, models.StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	_, err = client.UpdateAppointmentStatus(ctx, appt.ID, models.StatusCancelled, "too late")
	assert.True(t, api.IsStatus(err, http.StatusConflict))

	_, err = client.UpdateAppointmentStatus(ctx, "missing", models.StatusConfirmed, "")
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	_, err = client.UpdateAppointmentStatus(ctx, appt.ID, "ARCHIVED", "")
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	ts := setupServer(t, cfg)

	req := func() int {
		r, err := http.NewRequest(http.MethodGet, ts.URL+"/services", nil)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+staticToken)
		resp, err := http.DefaultClient.Do(r)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, req())
	assert.Equal(t, http.StatusTooManyRequests, req())
}

func TestIssueToken(t *testing.T) {
	ts := setupServer(t, testConfig())

	r, err := http.NewRequest(http.MethodPost, ts.URL+"/auth/token", strings.NewReader(`{"companyId":"company-1","professionalId":"pro-ivan"}`))
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+staticToken)
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	claims, err := session.Verify(jwtSecret, body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "company-1", claims.CompanyID)
	assert.Equal(t, "pro-ivan", claims.Subject)
}

func TestHealthzAndNotFound(t *testing.T) {
	ts := setupServer(t, testConfig())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/nowhere")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// The public wizard driven end to end against the mock backend.
func TestWizardAgainstMockBackend(t *testing.T) {
	ts := setupServer(t, testConfig())
	client := newClient(ts.URL, "")
	ctx := context.Background()
	date := tomorrow()

	w := wizard.New(client, slots.NewAPIResolver(client), wizard.NewPublicSubmitter(client))
	defer w.Close()

	require.NoError(t, w.LoadOfferings(ctx))
	assert.Len(t, w.Services(), 3)

	require.NoError(t, w.SelectService(ctx, "svc-manicure"))
	require.NoError(t, w.SelectProfessional(ctx, "pro-maria"))
	require.NoError(t, w.Continue(ctx))

	got, err := w.SelectDate(ctx, date)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.NoError(t, w.SelectTime(ctx, "14:00"))
	require.NoError(t, w.Continue(ctx))

	require.NoError(t, w.SetClientDetails(ctx, "Jane Doe", "jane@example.com", "555-0100", ""))
	appt, err := w.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepDone, w.Step())
	assert.Equal(t, "Maria", appt.Professional.Name)

	// Второй мастер на тот же слот получает сообщение бэкенда
	second := wizard.New(client, slots.NewAPIResolver(client), wizard.NewPublicSubmitter(client))
	defer second.Close()
	require.NoError(t, second.LoadOfferings(ctx))
	require.NoError(t, second.SelectService(ctx, "svc-manicure"))
	require.NoError(t, second.SelectProfessional(ctx, "pro-maria"))
	require.NoError(t, second.Continue(ctx))
	_, err = second.SelectDate(ctx, date)
	require.NoError(t, err)
	assert.Error(t, second.SelectTime(ctx, "14:00"))
}
