package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kairon/internal/api"
	"kairon/internal/config"
	"kairon/internal/domain"
	"kairon/internal/events"
	"kairon/internal/logging"
	"kairon/internal/models"
	"kairon/internal/repository"
	"kairon/internal/session"
	"kairon/internal/slots"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const usage = `usage: kairon <command> [flags]

commands:
  services      list bookable services
  slots         show time slots for a service, professional and date
  book          run the booking wizard from flags
  appointments  list appointments with stats
  status        change an appointment status
  calendar      print a month grid with appointment counts
`

// errUsage is returned for bad invocations; main exits with code 2.
var errUsage = errors.New("invalid usage")

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1], os.Args[2:], os.Stdout)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(ctx context.Context, command string, args []string, out io.Writer) error {
	cmd, ok := commands[command]
	if !ok {
		fmt.Fprint(os.Stderr, usage)
		return errUsage
	}

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	a, err := newApp(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd(ctx, a, args)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "cli").Logger()
	return cfg, &logger, closer, nil
}

// app holds the collaborators every command needs.
type app struct {
	cfg     *config.Config
	logger  *zerolog.Logger
	session *session.Session
	client  *api.Client
	redis   *redis.Client
	drafts  domain.DraftRepository
	bus     *events.EventBus
	out     io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, out io.Writer) (*app, error) {
	sess, err := session.FromConfig(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if sess.Expired(time.Now()) {
		logger.Warn().Time("expires_at", sess.ExpiresAt).Msg("access token has expired, authenticated calls will be rejected")
	}

	models.SetNaiveLocation(cfg.Booking.Location())

	a := &app{cfg: cfg, logger: logger, session: sess, out: out}
	a.bus = events.NewEventBus(logger)
	subscribeEvents(a.bus, logger)

	var opts []api.Option
	memory := repository.NewMemoryDraftRepository(cfg.Booking.DraftTTL())
	a.drafts = memory
	if rc := initRedis(ctx, cfg, logger); rc != nil {
		a.redis = rc
		opts = append(opts, api.WithRedisCache(rc, cfg.API.CacheTTL()), api.WithCacheScope(sess.CompanyID))
		primary := repository.NewRedisDraftRepository(rc, cfg.Booking.DraftTTL())
		a.drafts = repository.NewFailoverDraftRepository(primary, memory, logger)
	}

	a.client = api.NewClient(cfg.API, sess.TokenSource(), logger, opts...)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *app) resolver(forceMock bool) slots.Resolver {
	if forceMock || a.cfg.Booking.UseMockSlots {
		return slots.NewMockResolver()
	}
	return slots.NewAPIResolver(a.client)
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Debug().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func subscribeEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bookingHandler := func(event *events.Event) error {
		var p events.BookingPayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		entry := logger.Info()
		if p.Error != "" {
			entry = logger.Warn().Str("error", p.Error)
		}
		entry.Str("event", event.Type).
			Str("session_id", p.SessionID).
			Str("service_id", p.ServiceID).
			Str("professional_id", p.ProfessionalID).
			Str("date", p.Date).
			Str("time", p.Time).
			Msg("booking event")
		return nil
	}
	bus.Subscribe(events.EventBookingSubmitted, bookingHandler)
	bus.Subscribe(events.EventBookingFailed, bookingHandler)

	bus.Subscribe(events.EventAppointmentStatusChanged, func(event *events.Event) error {
		var p events.StatusChangePayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		logger.Info().Str("appointment_id", p.AppointmentID).Str("from", p.From).Str("to", p.To).Msg("appointment status changed")
		return nil
	})
	bus.Subscribe(events.EventAppointmentsLoaded, func(event *events.Event) error {
		var p events.AppointmentsLoadedPayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		logger.Debug().Str("filter", p.FilterKey).Int("count", p.Count).Bool("failed", p.Failed).Msg("appointments loaded")
		return nil
	})
}
