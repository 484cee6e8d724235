package backend

import (
	"compress/gzip"
	"crypto/md5"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/relabs-tech/items/core"
	"github.com/relabs-tech/items/core/logger"
)

const (
	itemCreateSchemaID = "https://relabs.tech/items/item-create.json"
	itemUpdateSchemaID = "https://relabs.tech/items/item-update.json"
)

// The create request requires name and price. The update request has all
// fields optional; key presence decides what gets changed, so both schemas
// deliberately leave unknown keys alone.
var itemCreateSchema = `{
	"$id": "` + itemCreateSchemaID + `",
	"type": "object",
	"required": ["name", "price"],
	"properties": {
		"name": { "type": "string" },
		"description": { "type": ["string", "null"] },
		"price": { "type": "number" }
	}
}`

var itemUpdateSchema = `{
	"$id": "` + itemUpdateSchemaID + `",
	"type": "object",
	"properties": {
		"name": { "type": "string" },
		"description": { "type": ["string", "null"] },
		"price": { "type": "number" }
	}
}`

func (b *Backend) createItemResource(router *mux.Router) {

	nillog := logger.FromContext(nil)
	nillog.Debugln("create collection: item")
	nillog.Debugln("  handle collection routes: /items GET,POST")
	nillog.Debugln("  handle item routes: /items/{item_id} GET,PUT,DELETE")

	readBody := func(r *http.Request) ([]byte, error) {
		body := r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				return nil, fmt.Errorf("invalid gzipped json data: %s", err)
			}
			body = gz
		}
		return io.ReadAll(body)
	}

	// itemID parses the path identifier. The route only matches with an
	// identifier present, so the only failure mode is a non-numeric id.
	itemID := func(w http.ResponseWriter, r *http.Request) (int64, bool) {
		params := mux.Vars(r)
		id, err := strconv.ParseInt(params["item_id"], 10, 64)
		if err != nil {
			http.Error(w, "broken primary identifier", http.StatusBadRequest)
			return 0, false
		}
		return id, true
	}

	writeItem := func(w http.ResponseWriter, status int, jsonData []byte) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		w.Write(jsonData)
	}

	create := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())

		body, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := b.jsonValidator.ValidateString(string(body), itemCreateSchemaID); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		var bodyJSON map[string]interface{}
		if err := json.Unmarshal(body, &bodyJSON); err != nil {
			http.Error(w, "invalid json data: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}

		name, _ := bodyJSON["name"].(string)
		price, _ := bodyJSON["price"].(float64)
		var description *string
		if value, ok := bodyJSON["description"]; ok && value != nil {
			s, _ := value.(string)
			description = &s
		}

		item, err := b.store.insert(r.Context(), name, description, price)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4711: cannot insert item")
			http.Error(w, "Error 4711", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.MarshalWithOption(item, json.DisableHTMLEscape())
		b.notify("item", core.OperationCreate, jsonData)
		writeItem(w, http.StatusCreated, jsonData)
	}

	list := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())

		items, err := b.store.list(r.Context())
		if err != nil {
			rlog.WithError(err).Errorf("Error 4712: cannot query items")
			http.Error(w, "Error 4712", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.MarshalWithOption(items, json.DisableHTMLEscape())
		etag := bytesToEtag(jsonData)
		w.Header().Set("Etag", etag)
		if ifNoneMatchFound(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeItem(w, http.StatusOK, jsonData)
	}

	read := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())

		id, ok := itemID(w, r)
		if !ok {
			return
		}
		item, err := b.store.getByID(r.Context(), id)
		if err == ErrNoSuchItem {
			http.Error(w, "no such item", http.StatusNotFound)
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4713: cannot QueryRow")
			http.Error(w, "Error 4713", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.MarshalWithOption(item, json.DisableHTMLEscape())
		etag := bytesToEtag(jsonData)
		w.Header().Set("Etag", etag)
		if ifNoneMatchFound(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		writeItem(w, http.StatusOK, jsonData)
	}

	update := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())

		id, ok := itemID(w, r)
		if !ok {
			return
		}
		body, err := readBody(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := b.jsonValidator.ValidateString(string(body), itemUpdateSchemaID); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		var bodyJSON map[string]interface{}
		if err := json.Unmarshal(body, &bodyJSON); err != nil {
			http.Error(w, "invalid json data: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}

		// key presence decides which columns get touched. A description
		// that is present with a null value clears the column.
		fields := ItemFields{}
		for _, key := range []string{"name", "description", "price"} {
			if value, ok := bodyJSON[key]; ok {
				fields[key] = value
			}
		}

		item, err := b.store.updateByID(r.Context(), id, fields)
		if err == ErrNoSuchItem {
			http.Error(w, "no such item", http.StatusNotFound)
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4714: cannot update item")
			http.Error(w, "Error 4714", http.StatusInternalServerError)
			return
		}

		jsonData, _ := json.MarshalWithOption(item, json.DisableHTMLEscape())
		b.notify("item", core.OperationUpdate, jsonData)
		writeItem(w, http.StatusOK, jsonData)
	}

	del := func(w http.ResponseWriter, r *http.Request) {
		rlog := logger.FromContext(r.Context())

		id, ok := itemID(w, r)
		if !ok {
			return
		}
		item, err := b.store.deleteByID(r.Context(), id)
		if err == ErrNoSuchItem {
			http.Error(w, "no such item", http.StatusNotFound)
			return
		}
		if err != nil {
			rlog.WithError(err).Errorf("Error 4715: cannot delete item")
			http.Error(w, "Error 4715", http.StatusInternalServerError)
			return
		}

		// callers receive the snapshot that existed before deletion
		jsonData, _ := json.MarshalWithOption(item, json.DisableHTMLEscape())
		b.notify("item", core.OperationDelete, jsonData)
		writeItem(w, http.StatusOK, jsonData)
	}

	// CREATE
	router.Handle("/items", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		create(w, r)
	}))).Methods(http.MethodOptions, http.MethodPost)

	// LIST
	router.Handle("/items", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		list(w, r)
	}))).Methods(http.MethodOptions, http.MethodGet)

	// READ
	router.Handle("/items/{item_id}", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		read(w, r)
	}))).Methods(http.MethodOptions, http.MethodGet)

	// UPDATE
	router.Handle("/items/{item_id}", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		update(w, r)
	}))).Methods(http.MethodOptions, http.MethodPut)

	// DELETE
	router.Handle("/items/{item_id}", handlers.CompressHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Infoln("called route for", r.URL, r.Method)
		del(w, r)
	}))).Methods(http.MethodOptions, http.MethodDelete)
}

func bytesToEtag(b []byte) string {
	return fmt.Sprintf("\"%x\"", md5.Sum(b))
}

func ifNoneMatchFound(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.Trim(ifNoneMatch, " ")
	if len(ifNoneMatch) == 0 {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	for _, s := range strings.Split(ifNoneMatch, ",") {
		s = strings.Trim(s, " \"")
		t := strings.Trim(etag, " \"")
		if s == t {
			return true
		}
	}
	return false
}
