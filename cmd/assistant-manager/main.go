// cmd/assistant-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"realestate-assistant/internal/api"
	"realestate-assistant/internal/assistant/dispatch"
	"realestate-assistant/internal/assistant/pulse"
	"realestate-assistant/internal/assistant/router"
	"realestate-assistant/internal/collaborators/appointments"
	"realestate-assistant/internal/collaborators/crm"
	"realestate-assistant/internal/collaborators/offers"
	"realestate-assistant/internal/common/aws"
	"realestate-assistant/internal/common/camunda"
	"realestate-assistant/internal/common/config"
	"realestate-assistant/internal/common/database"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/common/observability"

	hm "realestate-assistant/internal/workers/assistant/handle-message"
)

const shutdownTimeout = 30 * time.Second

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	log.Info("Starting assistant manager...", map[string]interface{}{"version": cfg.App.Version})

	ctx := context.Background()

	obs := observability.New(cfg.App.Name, cfg.Tracing, log)

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	log.Info("PostgreSQL connected successfully", nil)

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, log, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	log.Info("Elasticsearch connected successfully", nil)

	checks := []database.Pinger{pg, esClient}

	// --- Pulse store ---
	var store pulse.Store
	switch cfg.Assistant.PulseStore {
	case config.PulseStoreRedis:
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		log.Info("Redis connected successfully", nil)

		checks = append(checks, rc)
		store = pulse.NewRedisStore(rc.Client, pulse.RedisStoreConfig{
			KeyPrefix: cfg.Assistant.PulseKeyPrefix,
		})
	default:
		log.Warn("using in-memory pulse store, telemetry is lost on restart", nil)
		store = pulse.NewMemoryStore()
	}

	// --- Collaborators ---
	crmStore := crm.NewStore(pg.DB, crm.Config{ShareBaseURL: cfg.Assistant.ShareBaseURL}, log)
	offerSearcher := offers.NewSearcher(esClient.Client, cfg.Database.Elasticsearch.OffersIndex, log)

	dispatcher := dispatch.NewDispatcher(&dispatch.Config{
		Timeout:  config.GetDuration(cfg.Assistant.LookupTimeout),
		MaxItems: cfg.Assistant.MaxListItems,
	}, dispatch.Collaborators{
		Customers:     crmStore,
		Requests:      crmStore,
		Offers:        offerSearcher,
		BusinessCards: crmStore,
	}, log)

	sink := newAppointmentSink(ctx, cfg, crmStore, log)

	assistant := router.New(router.Config{MaxListItems: cfg.Assistant.MaxListItems}, dispatcher,
		pulse.NewTracker(store, log), log,
		router.WithObservability(obs),
		router.WithAppointmentSink(sink),
	)

	// --- Camunda worker ---
	var (
		zeebe     *camunda.Client
		jobWorker worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig)
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		log.Info("Zeebe client connected successfully", nil)
		checks = append(checks, zeebe)

		handler := hm.NewHandler(hm.LoadConfig(cfg), assistant, log)
		jobWorker = camunda.StartWorker(zeebe.GetClient(), hm.TaskType, config.GetWorkerConfig(cfg, hm.TaskType), handler, log)
	}

	// --- HTTP API ---
	server := api.NewServer(cfg.Server, assistant, log, checks...)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Listen(cfg.Server.Address); err != nil {
			serverErr <- err
		}
	}()
	server.SetReady(true)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", map[string]interface{}{"signal": sig.String()})
	case err := <-serverErr:
		log.Error("HTTP server failed", map[string]interface{}{"error": err.Error()})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping HTTP server", map[string]interface{}{"error": err.Error()})
	}
	if jobWorker != nil {
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}

	// Pulse writes and appointment notifications still in flight.
	assistant.Wait()
	obs.Shutdown(shutdownCtx)

	log.Info("Assistant manager stopped", nil)
}

// newAppointmentSink wires persistence and the enabled notification
// channels. A channel whose client cannot be built is skipped.
func newAppointmentSink(ctx context.Context, cfg *config.Config, repo appointments.Repository, log logger.Logger) *appointments.Sink {
	var (
		email appointments.EmailSender
		sms   appointments.SMSSender
	)
	n := cfg.Notifications

	if n.Email.Enabled {
		client, err := aws.NewSESClient(ctx, n.AWS.Region)
		if err != nil {
			log.Error("SES client unavailable, appointment emails disabled", map[string]interface{}{"error": err.Error()})
		} else {
			email = client
		}
	}
	if n.SMS.Enabled {
		client, err := aws.NewSNSClient(ctx, n.AWS.Region)
		if err != nil {
			log.Error("SNS client unavailable, appointment SMS disabled", map[string]interface{}{"error": err.Error()})
		} else {
			sms = client
		}
	}

	return appointments.NewSink(appointments.Config{
		Persist:   cfg.Assistant.PersistAppointments,
		FromEmail: n.Email.FromEmail,
		ToEmail:   n.Email.ToEmail,
		SenderID:  n.SMS.SenderID,
		Phone:     n.SMS.PhoneNumber,
	}, repo, email, sms, log)
}
