package test

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/gorilla/mux"
	"github.com/relabs-tech/items/core/backend"
	"github.com/relabs-tech/items/core/client"
	"github.com/relabs-tech/items/core/csql"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// IntegrationTestSuite boots a throwaway postgres container and runs the
// items service against it over real HTTP.
type IntegrationTestSuite struct {
	suite.Suite

	postgresContainer testcontainers.Container
	db                *csql.DB
	server            *httptest.Server
	client            client.Client
}

func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresUser := "testuser"
	postgresPassword := "testpass"
	postgresDB := "testdb"

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.postgresContainer = pgC

	pgHost, err := pgC.Host(ctx)
	s.Require().NoError(err)
	pgPort, err := pgC.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	dataSourceName := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		pgHost, pgPort.Port(), postgresUser, postgresDB)

	// the port opens before postgres accepts connections, so poll
	s.Require().NoError(waitForPostgres(dataSourceName+" password="+postgresPassword, 30*time.Second))

	s.db = csql.OpenWithSchema(dataSourceName, postgresPassword, "items")

	router := mux.NewRouter()
	backend.New(&backend.Builder{
		DB:     s.db,
		Router: router,
	})

	s.server = httptest.NewServer(router)
	s.client = client.NewWithURL(s.server.URL)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	if s.postgresContainer != nil {
		_ = s.postgresContainer.Terminate(context.Background())
	}
}

func waitForPostgres(dataSourceName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		db, err := sql.Open("postgres", dataSourceName)
		if err == nil {
			err = db.Ping()
			db.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("postgres did not become ready: %s", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}
