package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/beck-00/financial-model-generator/pkg/kafka"
	"github.com/beck-00/financial-model-generator/pkg/logger"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

// Kafka topics for auth domain events.
var (
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserLoggedIn   = pkgkafka.Topic("user", "logged_in")
	TopicTokenRotated   = pkgkafka.Topic("token", "rotated")
)

// Aggregate types.
const (
	AggregateTypeUser  = "user"
	AggregateTypeToken = "refresh_token"
)

// SourceAuthService identifies events originating from this service.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserLoggedInData is the payload for a user.logged_in event.
type UserLoggedInData struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// TokenRotatedData is the payload for a token.rotated event. Keys are
// ledger digests, never the tokens themselves.
type TokenRotatedData struct {
	UserID         string    `json:"user_id"`
	PreviousKey    string    `json:"previous_key"`
	SuccessorKey   string    `json:"successor_key"`
	SuccessorUntil time.Time `json:"successor_expires_at"`
}

// Publisher emits auth domain events.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, userID string, at time.Time) error
	PublishTokenRotated(ctx context.Context, previousKey string, successor *domain.RefreshToken) error
}

type eventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes auth domain events to Kafka.
type Producer struct {
	kafka  eventWriter
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, data)
}

// PublishUserLoggedIn publishes a user.logged_in event.
func (p *Producer) PublishUserLoggedIn(ctx context.Context, userID string, at time.Time) error {
	data := UserLoggedInData{UserID: userID, At: at}
	return p.publish(ctx, TopicUserLoggedIn, userID, AggregateTypeUser, data)
}

// PublishTokenRotated publishes a token.rotated event.
func (p *Producer) PublishTokenRotated(ctx context.Context, previousKey string, successor *domain.RefreshToken) error {
	data := TokenRotatedData{
		UserID:         successor.UserID,
		PreviousKey:    previousKey,
		SuccessorKey:   successor.Key,
		SuccessorUntil: successor.ExpiresAt,
	}
	return p.publish(ctx, TopicTokenRotated, successor.UserID, AggregateTypeToken, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published auth event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// NoopPublisher drops every event. Used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishUserRegistered(context.Context, *domain.User) error { return nil }

func (NoopPublisher) PublishUserLoggedIn(context.Context, string, time.Time) error { return nil }

func (NoopPublisher) PublishTokenRotated(context.Context, string, *domain.RefreshToken) error {
	return nil
}
