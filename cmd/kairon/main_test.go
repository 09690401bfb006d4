package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kairon/internal/config"
	"kairon/internal/database"
	"kairon/internal/mockapi"
	"kairon/internal/models"
	"kairon/internal/wizard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI starts the mock backend and points CONFIG_PATH at a config for it.
func setupCLI(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.ApplySeed(context.Background(), database.DefaultSeed()))

	srv := mockapi.NewServer(config.MockServerConfig{
		Tokens:          []string{"cli-token"},
		OpeningTime:     "09:00",
		ClosingTime:     "12:00",
		SlotStepMins:    30,
		PublicCompanyID: "company-1",
	}, db, &logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`
app:
  name: kairon-test
logging:
  level: error
  output: stderr
api:
  base_url: %s
  timeout_seconds: 5
session:
  access_token: cli-token
  company_id: company-1
`, ts.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))
	t.Setenv("CONFIG_PATH", cfgPath)
	return db
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args[0], args[1:], &out)
	return out.String(), err
}

func tomorrow() string {
	return models.DateOf(time.Now()).AddDays(1).String()
}

func TestServicesCommand(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "services")
	require.NoError(t, err)
	assert.Contains(t, out, "svc-haircut")
	assert.NotContains(t, out, "svc-consult")

	out, err = runCLI(t, "services", "-all")
	require.NoError(t, err)
	assert.Contains(t, out, "svc-consult")

	out, err = runCLI(t, "services", "-professional", "pro-maria")
	require.NoError(t, err)
	assert.Contains(t, out, "Manicure")
	assert.NotContains(t, out, "Haircut")
}

func TestSlotsCommand(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "slots", "-mock", "-service", "svc-haircut", "-professional", "pro-ivan", "-date", tomorrow())
	require.NoError(t, err)
	assert.Equal(t, "09:00  free\n10:00  free\n11:00  taken\n", out)

	out, err = runCLI(t, "slots", "-service", "svc-haircut", "-professional", "pro-ivan", "-date", tomorrow())
	require.NoError(t, err)
	assert.Contains(t, out, "11:30  free")

	_, err = runCLI(t, "slots", "-date", "15/01/2025")
	assert.ErrorIs(t, err, errUsage)
}

func TestBookThenManage(t *testing.T) {
	db := setupCLI(t)

	out, err := runCLI(t, "book",
		"-service", "svc-haircut", "-professional", "pro-ivan",
		"-date", tomorrow(), "-time", "10:00",
		"-name", "Jane Doe", "-email", "jane@example.com", "-phone", "555-0100")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Booked")
	assert.Contains(t, out, "Ivan")

	appts, err := db.ListAppointments(context.Background(), models.AppointmentFilter{CompanyID: "company-1"})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	id := appts[0].ID

	out, err = runCLI(t, "appointments", "-by-professional", "-by-day")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Total 1: pending 1")
	assert.Contains(t, out, "Ivan: 1 appointments, revenue 35.00")

	out, err = runCLI(t, "status", "-id", id, "-to", "confirmed")
	require.NoError(t, err)
	assert.Contains(t, out, "is now CONFIRMED")

	out, err = runCLI(t, "status", "-id", id, "-to", "PENDING")
	require.Error(t, err)
	assert.Contains(t, out, "Cannot change status from CONFIRMED to PENDING")
	assert.Contains(t, out, "Allowed from CONFIRMED: COMPLETED, CANCELLED, NO_SHOW")

	_, err = runCLI(t, "status", "-id", id, "-to", "CANCELLED")
	assert.ErrorIs(t, err, errUsage)

	out, err = runCLI(t, "calendar", "-month", time.Now().AddDate(0, 0, 1).Format("2006-01"))
	require.NoError(t, err)
	assert.Contains(t, out, "(1)")
}

func TestBookMissingTimeSavesDraft(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "book",
		"-service", "svc-haircut", "-professional", "pro-ivan", "-date", tomorrow(),
		"-session", "draft-1")
	var verr wizard.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(wizard.FieldTime))
	assert.Contains(t, out, "09:00  free")
	assert.Contains(t, out, "resume with -session draft-1")
}

func TestUnknownCommand(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "frobnicate")
	assert.ErrorIs(t, err, errUsage)
}
