// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package main

import (
	"net/http"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/items/core"
	"github.com/relabs-tech/items/core/backend"
	"github.com/relabs-tech/items/core/csql"
	"github.com/relabs-tech/items/core/logger"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type Service struct {
	Postgres         string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`
	Port             string `env:"PORT,default=3000" description:"the port the service listens on"`
	KafkaBrokers     string `env:"KAFKA_BROKERS,optional" description:"comma separated kafka brokers for item change notifications"`
}

func main() {
	logger.InitLogger(logrus.InfoLevel)

	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	db := csql.OpenWithSchema(service.Postgres, service.PostgresPassword, "items")
	defer db.Close()

	var notifier core.Notifier
	if len(service.KafkaBrokers) > 0 {
		kafkaNotifier := backend.NewKafkaNotifier(strings.Split(service.KafkaBrokers, ","), "item-events")
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	router := mux.NewRouter()
	backend.New(&backend.Builder{
		DB:       db,
		Router:   router,
		Notifier: notifier,
	})

	logger.Default().Infoln("listen on port :" + service.Port)
	http.ListenAndServe(":"+service.Port, router)
}
