package backend

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gorilla/mux"
	"github.com/relabs-tech/items/core"
	"github.com/relabs-tech/items/core/client"
)

func TestItemNotFound(t *testing.T) {
	neverUsed := "123456789"

	status, _ := testService.client.RawGet("/items/"+neverUsed, &Item{})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = testService.client.RawPut("/items/"+neverUsed,
		map[string]interface{}{"price": 9.99}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = testService.client.RawDelete("/items/"+neverUsed, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestItemBrokenIdentifier(t *testing.T) {
	for _, id := range []string{"pen", "1.5", "0x1f"} {
		status, _ := testService.client.RawGet("/items/"+id, nil)
		assert.Equal(t, http.StatusBadRequest, status, id)
	}
}

func TestItemValidation(t *testing.T) {
	// name and price are required on creation
	status, _ := testService.client.RawPost("/items",
		map[string]interface{}{"name": "Pencil"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = testService.client.RawPost("/items",
		map[string]interface{}{"price": 0.25}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	// wrong-typed values are rejected
	status, _ = testService.client.RawPost("/items",
		map[string]interface{}{"name": "Pencil", "price": "cheap"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = testService.client.RawPost("/items", []byte("no json at all"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	item := Item{}
	status, err := testService.client.RawPost("/items",
		map[string]interface{}{"name": "Pencil", "price": 0.25}, &item)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusCreated, status)

	// the same type checks apply to updates, null price included
	status, _ = testService.client.RawPut("/items/"+asJSON(item.ItemID),
		map[string]interface{}{"price": nil}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = testService.client.RawPut("/items/"+asJSON(item.ItemID),
		map[string]interface{}{"name": 17}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestItemPermissiveValues(t *testing.T) {
	// there is no business rule on name or price beyond their types,
	// empty names and negative prices pass through unharmed
	item := Item{}
	_, err := testService.client.RawPost("/items",
		map[string]interface{}{"name": "", "price": -12.5}, &item)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "", item.Name)
	assert.Equal(t, -12.5, item.Price)
}

func TestItemEtag(t *testing.T) {
	item := Item{}
	if _, err := testService.client.RawPost("/items",
		map[string]interface{}{"name": "Stapler", "price": 11.0}, &item); err != nil {
		t.Fatal(err)
	}

	_, header, err := testService.client.RawGetWithHeader(
		"/items/"+asJSON(item.ItemID), nil, &Item{})
	if err != nil {
		t.Fatal(err)
	}
	etag := header.Get("Etag")
	if etag == "" {
		t.Fatal("Etag is not present in response header")
	}

	status, _, err := testService.client.RawGetWithHeader(
		"/items/"+asJSON(item.ItemID), map[string]string{"If-None-Match": etag}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusNotModified, status)

	// an update changes the representation and hence the etag
	if _, err = testService.client.RawPut("/items/"+asJSON(item.ItemID),
		map[string]interface{}{"price": 12.0}, nil); err != nil {
		t.Fatal(err)
	}
	status, _, err = testService.client.RawGetWithHeader(
		"/items/"+asJSON(item.ItemID), map[string]string{"If-None-Match": etag}, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, http.StatusOK, status)
}

func TestItemInjectedClock(t *testing.T) {
	frozen := time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC)

	router := mux.NewRouter()
	New(&Builder{
		DB:     testService.db,
		Router: router,
		Clock:  func() time.Time { return frozen },
	})
	frozenClient := client.NewWithRouter(router)

	item := Item{}
	if _, err := frozenClient.RawPost("/items",
		map[string]interface{}{"name": "Calendar", "price": 8.0}, &item); err != nil {
		t.Fatal(err)
	}
	if !item.CreatedAt.Equal(frozen) {
		t.Fatal("unexpected created_at:", item.CreatedAt, "expected:", frozen)
	}

	// created_at is set once and never mutated
	itemPut := Item{}
	if _, err := frozenClient.RawPut("/items/"+asJSON(item.ItemID),
		map[string]interface{}{"name": "Wall Calendar"}, &itemPut); err != nil {
		t.Fatal(err)
	}
	if !itemPut.CreatedAt.Equal(frozen) {
		t.Fatal("created_at was mutated:", itemPut.CreatedAt)
	}
}

type recordedNotification struct {
	resource  string
	operation core.Operation
	payload   []byte
}

type recordingNotifier struct {
	notifications []recordedNotification
}

func (n *recordingNotifier) Notify(resource string, operation core.Operation, payload []byte) {
	n.notifications = append(n.notifications,
		recordedNotification{resource: resource, operation: operation, payload: payload})
}

func TestItemNotifications(t *testing.T) {
	notifier := &recordingNotifier{}
	router := mux.NewRouter()
	New(&Builder{
		DB:       testService.db,
		Router:   router,
		Notifier: notifier,
	})
	notifyingClient := client.NewWithRouter(router)

	item := Item{}
	if _, err := notifyingClient.RawPost("/items",
		map[string]interface{}{"name": "Bell", "price": 2.5}, &item); err != nil {
		t.Fatal(err)
	}
	if _, err := notifyingClient.RawPut("/items/"+asJSON(item.ItemID),
		map[string]interface{}{"price": 3.0}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := notifyingClient.RawDelete("/items/"+asJSON(item.ItemID), nil); err != nil {
		t.Fatal(err)
	}

	// reads do not notify
	if _, err := notifyingClient.RawGet("/items", &[]Item{}); err != nil {
		t.Fatal(err)
	}

	if assert.Len(t, notifier.notifications, 3) {
		assert.Equal(t, core.OperationCreate, notifier.notifications[0].operation)
		assert.Equal(t, core.OperationUpdate, notifier.notifications[1].operation)
		assert.Equal(t, core.OperationDelete, notifier.notifications[2].operation)
		for _, n := range notifier.notifications {
			assert.Equal(t, "item", n.resource)
		}
	}

	// a failed validation commits nothing and must not notify
	status, _ := notifyingClient.RawPost("/items", map[string]interface{}{"name": "Bell"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Len(t, notifier.notifications, 3)
}
