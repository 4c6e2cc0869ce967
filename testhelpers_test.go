//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/dropme-cab/service-rides/internal/application"
	"github.com/dropme-cab/service-rides/internal/domain/trip"
	rideEvents "github.com/dropme-cab/service-rides/internal/events"
	"github.com/dropme-cab/service-rides/internal/geo"
	"github.com/dropme-cab/service-rides/internal/kafka"
	"github.com/dropme-cab/service-rides/internal/repository"
	"github.com/dropme-cab/service-rides/internal/routing"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// ridesStack holds wired-up resolution service components.
type ridesStack struct {
	Service         *application.ResolutionService
	Rules           *trip.RuleSet
	AreaConsumer    *rideEvents.ServiceAreaConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_rides",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_rides sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(&repository.TripSessionModel{}))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, rideEvents.TopicRideEvents, rideEvents.TopicServiceArea)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// startFakeNominatim serves canned search and reverse responses.
func startFakeNominatim(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			q := r.URL.Query().Get("q")
			switch {
			case q == "mg road":
				fmt.Fprint(w, `[{"display_name":"MG Road, Bengaluru, Karnataka, India","lat":"12.9758","lon":"77.6045","address":{"city":"Bengaluru","state":"Karnataka","country_code":"in"}}]`)
			case q == "koramangala":
				fmt.Fprint(w, `[{"display_name":"Koramangala, Bengaluru, Karnataka, India","lat":"12.9352","lon":"77.6245","address":{"city":"Bengaluru","state":"Karnataka","country_code":"in"}}]`)
			case q == "cst mumbai":
				fmt.Fprint(w, `[{"display_name":"CST, Mumbai, Maharashtra, India","lat":"18.9398","lon":"72.8354","address":{"city":"Mumbai","state":"Maharashtra","country_code":"in"}}]`)
			case q == "pune station":
				fmt.Fprint(w, `[{"display_name":"Pune Station, Pune, Maharashtra, India","lat":"18.5289","lon":"73.8744","address":{"city":"Pune","state":"Maharashtra","country_code":"in"}}]`)
			default:
				fmt.Fprint(w, `[]`)
			}
		case "/reverse":
			fmt.Fprint(w, `{"display_name":"MG Road, Bengaluru, Karnataka, India","lat":"12.9758","lon":"77.6045","address":{"city":"Bengaluru","state":"Karnataka","country_code":"in"}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// startFakeOSRM serves a fixed 7.42 km / 18 min route.
func startFakeOSRM(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"Ok","routes":[{"distance":7420.0,"duration":1080.0}]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupRidesStack wires up the full resolution service stack against fake
// geo and routing providers.
func setupRidesStack(t *testing.T, db *gorm.DB, brokers []string) *ridesStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	nominatim := startFakeNominatim(t)
	osrm := startFakeOSRM(t)

	sessionRepo := repository.NewGormSessionRepository(db)
	directory := geo.NewNominatimDirectory(nominatim.URL, geo.WithRateLimit(1000))
	estimator := routing.NewOSRMEstimator(osrm.URL)
	producer := kafka.NewProducer(brokers, logger)

	rules := trip.NewRuleSet(trip.RulesConfig{
		OutstationThresholdKm: 40.0,
		OutstationDisallowed:  "Bike,Auto",
	})

	svc := application.NewResolutionService(
		sessionRepo, directory, estimator, producer, rules,
		application.NewDebouncer(0), // synchronous lookups in tests
		2, 5*time.Second, logger,
	)

	groupID := fmt.Sprintf("test-rides-%s", uuid.New().String()[:8])
	areaConsumer := rideEvents.NewServiceAreaConsumer(brokers, groupID, rules, logger)

	return &ridesStack{
		Service:         svc,
		Rules:           rules,
		AreaConsumer:    areaConsumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// resolveBothEndpoints types and selects the given queries on a session.
func resolveBothEndpoints(t *testing.T, svc *application.ResolutionService, passengerID, sessionID uuid.UUID, pickupQuery, dropQuery string) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.HandleInput(ctx, passengerID, sessionID, "pickup", application.InputRequest{Text: pickupQuery})
	require.NoError(t, err)
	_, err = svc.HandleSelect(ctx, passengerID, sessionID, "pickup", application.SelectRequest{Index: 0})
	require.NoError(t, err)

	_, err = svc.HandleInput(ctx, passengerID, sessionID, "drop", application.InputRequest{Text: dropQuery})
	require.NoError(t, err)
	_, err = svc.HandleSelect(ctx, passengerID, sessionID, "drop", application.SelectRequest{Index: 0})
	require.NoError(t, err)
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
