package service

import (
	"context"
	"crypto/subtle"

	"github.com/psds-microservice/helpdesk-service/internal/errs"
	"github.com/psds-microservice/helpdesk-service/internal/metrics"
	"github.com/psds-microservice/helpdesk-service/internal/model"
)

var (
	DemoAgent  = model.User{ID: 1, Name: "Agente Silva", Email: "agente@suporte.com", Role: model.RoleAgent}
	DemoClient = model.User{ID: 2, Name: "Cliente João", Email: "joao@cliente.com", Role: model.RoleClient}
)

type credential struct {
	username string
	password string
	user     model.User
}

// Две фиксированные учётные записи демо-стенда. Ни хеширования, ни сессий.
var credentials = []credential{
	{username: "user", password: "123", user: DemoAgent},
	{username: "cliente", password: "456", user: DemoClient},
}

type AuthServicer interface {
	Login(ctx context.Context, username, password string) (*model.User, error)
}

type AuthService struct {
	latency bool
	metrics *metrics.Metrics
}

func NewAuthService(opts Options) *AuthService {
	return &AuthService{latency: opts.Latency, metrics: opts.Metrics}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*model.User, error) {
	if s.latency {
		if err := sleep(ctx, delayLogin); err != nil {
			return nil, err
		}
	}
	for _, c := range credentials {
		if c.username == username && subtle.ConstantTimeCompare([]byte(c.password), []byte(password)) == 1 {
			u := c.user
			s.metrics.Login(true)
			return &u, nil
		}
	}
	s.metrics.Login(false)
	return nil, errs.ErrInvalidCredentials
}
