package backend

import (
	"fmt"
	"time"

	"github.com/gorilla/mux"
	"github.com/relabs-tech/items/core"
	"github.com/relabs-tech/items/core/csql"
	"github.com/relabs-tech/items/core/logger"
	"github.com/relabs-tech/items/core/schema"
)

// Backend is the rest backend for the item collection
type Backend struct {
	db            *csql.DB
	router        *mux.Router
	notifier      core.Notifier
	store         *itemStore
	jsonValidator *schema.Validator
}

// Builder is a builder helper for the Backend
type Builder struct {
	// DB is a postgres database. This is mandatory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Notifier receives a notification for every successful create,
	// update and delete. This is optional.
	Notifier core.Notifier
	// Clock returns the creation time for new items. This is optional,
	// it defaults to time.Now. Tests use it to inject a fixed time.
	Clock func() time.Time
}

// New realizes the actual backend. It creates the items relation (if it
// does not exist yet) and adds the actual routes to router
func New(bb *Builder) *Backend {

	if bb.DB == nil {
		panic("DB is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}

	jsonValidator, err := schema.NewValidator([]string{itemCreateSchema, itemUpdateSchema}, nil)
	if err != nil {
		panic(fmt.Errorf("cannot compile item schemas: %s", err))
	}

	clock := bb.Clock
	if clock == nil {
		clock = time.Now
	}

	b := &Backend{
		db:            bb.DB,
		router:        bb.Router,
		notifier:      bb.Notifier,
		jsonValidator: jsonValidator,
		store:         newItemStore(bb.DB, clock),
	}

	logger.AddRequestID(b.router)
	b.createItemResource(b.router)
	return b
}

func (b *Backend) notify(resource string, operation core.Operation, payload []byte) {
	if b.notifier == nil {
		return
	}
	b.notifier.Notify(resource, operation, payload)
}
