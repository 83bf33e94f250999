package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/handler"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/router"
	"github.com/psds-microservice/helpdesk-service/internal/searchindex"
	"github.com/psds-microservice/helpdesk-service/internal/seed"
	"github.com/psds-microservice/helpdesk-service/internal/service"
)

// API приложение: HTTP-сервер (режим api).
type API struct {
	cfg       *config.Config
	httpSrv   *http.Server
	producer  *kafka.Producer
	closeRepo func() error
}

// NewAPI создаёт приложение для режима api.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	repo, closeRepo, err := OpenRepository(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.SeedDemo {
		if _, err := seed.Load(context.Background(), repo); err != nil {
			closeRepo()
			return nil, err
		}
	}

	m := metrics.Default()
	opts := service.Options{Latency: cfg.SimulatedLatency, Metrics: m}
	ticketSvc := service.NewTicketService(repo, opts)
	authSvc := service.NewAuthService(opts)
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	searchClient := searchindex.NewClient(cfg.SearchServiceURL)

	ticketHandler := handler.NewTicketHandler(handler.Deps{
		Ticket:   ticketSvc,
		Producer: producer,
		Search:   searchClient,
	})
	authHandler := handler.NewAuthHandler(authSvc)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(authHandler, ticketHandler, m),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:       cfg,
		httpSrv:   httpSrv,
		producer:  producer,
		closeRepo: closeRepo,
	}, nil
}

// Run запускает HTTP-сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s (store: %s)", a.httpSrv.Addr, a.cfg.StoreDriver)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Swagger spec:  %s/swagger/openapi.json", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  Metrics:       %s/metrics", base)
	log.Printf("  API v1:        %s/api/v1/", base)
	if a.producer.Enabled() {
		log.Printf("  Kafka topic:   %s", a.cfg.KafkaTopicTicket)
	}
	if a.cfg.SimulatedLatency {
		log.Println("  simulated latency enabled")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.close()
		return fmt.Errorf("http: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.close()
	return nil
}

func (a *API) close() {
	if err := a.producer.Close(); err != nil {
		log.Printf("kafka: close: %v", err)
	}
	if err := a.closeRepo(); err != nil {
		log.Printf("database: close: %v", err)
	}
}
