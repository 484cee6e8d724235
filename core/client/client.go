// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides easy and fast in-process access to a REST api

Instead of marshalling HTTP, the client talks directly to the mux router. The client
is the tool of choice if one request handler needs to call other handlers to fulfill
its task. It is also perfectly suited for unit tests.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend
func NewWithURL(url string) Client {
	return Client{
		url:            url,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	c.defaultHeaders[key] = value
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the client's base context
func (c Client) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c Client) do(r *http.Request) (status int, header http.Header, resBody []byte, err error) {
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res := rec.Result()
		return res.StatusCode, res.Header, rec.Body.Bytes(), nil
	}
	res, err := c.httpClient.Do(r)
	if err != nil {
		return http.StatusInternalServerError, nil, nil, err
	}
	defer res.Body.Close()
	resBody, _ = io.ReadAll(res.Body)
	return res.StatusCode, res.Header, resBody, nil
}

func unmarshalResult(resBody []byte, result interface{}) error {
	if resBody == nil || result == nil {
		return nil
	}
	if raw, ok := result.(*[]byte); ok {
		*raw = resBody
		return nil
	}
	return json.Unmarshal(resBody, result)
}

func statusError(status, want int, resBody []byte) error {
	return fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
		status, want, strings.TrimSpace(string(resBody)))
}

// RawGet gets the resource from path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// The path can be extended with query strings.
//
// result can be map[string]interface{} or a raw *[]byte.
// result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	status, _, err := c.RawGetWithHeader(path, nil, result)
	return status, err
}

// RawGetWithHeader gets the resource from path. Expects http.StatusOK as response, otherwise it
// will flag an error. Returns the actual http status code and the response header.
func (c Client) RawGetWithHeader(path string, header map[string]string, result interface{}) (int, http.Header, error) {
	r, _ := http.NewRequestWithContext(c.Context(), http.MethodGet, c.url+path, nil)
	for key, value := range header {
		r.Header.Add(key, value)
	}
	status, resHeader, resBody, err := c.do(r)
	if err != nil {
		return status, resHeader, err
	}
	if status == http.StatusNotModified || status == http.StatusNoContent {
		return status, resHeader, nil
	}
	if status != http.StatusOK {
		return status, resHeader, statusError(status, http.StatusOK, resBody)
	}
	return status, resHeader, unmarshalResult(resBody, result)
}

// RawPost posts body to path. Expects http.StatusCreated as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// body can be a struct, a map or a raw []byte. result can be nil.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	j, ok := body.([]byte)
	if !ok {
		var err error
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, err
		}
	}
	r, _ := http.NewRequestWithContext(c.Context(), http.MethodPost, c.url+path, bytes.NewBuffer(j))
	status, _, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusCreated {
		return status, statusError(status, http.StatusCreated, resBody)
	}
	return status, unmarshalResult(resBody, result)
}

// RawPut puts body to path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// body can be a struct, a map or a raw []byte. result can be nil.
func (c Client) RawPut(path string, body interface{}, result interface{}) (int, error) {
	j, ok := body.([]byte)
	if !ok {
		var err error
		j, err = json.Marshal(body)
		if err != nil {
			return http.StatusBadRequest, err
		}
	}
	r, _ := http.NewRequestWithContext(c.Context(), http.MethodPut, c.url+path, bytes.NewBuffer(j))
	status, _, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, statusError(status, http.StatusOK, resBody)
	}
	return status, unmarshalResult(resBody, result)
}

// RawDelete deletes the resource at path. Expects http.StatusOK as response, otherwise it
// will flag an error. Returns the actual http status code.
//
// The handler returns the deleted object, it can be received with result.
// result can be map[string]interface{} or a raw *[]byte. result can be nil.
func (c Client) RawDelete(path string, result interface{}) (int, error) {
	r, _ := http.NewRequestWithContext(c.Context(), http.MethodDelete, c.url+path, nil)
	status, _, resBody, err := c.do(r)
	if err != nil {
		return status, err
	}
	if status != http.StatusOK {
		return status, statusError(status, http.StatusOK, resBody)
	}
	return status, unmarshalResult(resBody, result)
}
