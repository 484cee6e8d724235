package test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/relabs-tech/items/core/backend"
	"github.com/relabs-tech/items/core/pointers"
	"github.com/stretchr/testify/suite"
)

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) TestItemLifecycle() {
	// a fresh store lists as an empty sequence, not null and not an error
	var raw []byte
	_, err := s.client.RawGet("/items", &raw)
	s.Require().NoError(err)
	s.Equal("[]", string(raw))

	item := backend.Item{}
	_, err = s.client.RawPost("/items",
		map[string]interface{}{"name": "Pen", "price": 1.5}, &item)
	s.Require().NoError(err)
	s.NotZero(item.ItemID)
	s.Equal("Pen", item.Name)
	s.Nil(item.Description)
	s.Equal(1.5, item.Price)

	itemGet := backend.Item{}
	_, err = s.client.RawGet(fmt.Sprintf("/items/%d", item.ItemID), &itemGet)
	s.Require().NoError(err)
	s.Equal(item, itemGet)

	itemPut := backend.Item{}
	_, err = s.client.RawPut(fmt.Sprintf("/items/%d", item.ItemID),
		map[string]interface{}{"description": "ballpoint", "price": 2.0}, &itemPut)
	s.Require().NoError(err)
	s.Equal(item.ItemID, itemPut.ItemID)
	s.Equal("Pen", itemPut.Name)
	s.Equal("ballpoint", pointers.SafeString(itemPut.Description))
	s.Equal(2.0, itemPut.Price)
	s.True(itemPut.CreatedAt.Equal(item.CreatedAt))

	itemDeleted := backend.Item{}
	_, err = s.client.RawDelete(fmt.Sprintf("/items/%d", item.ItemID), &itemDeleted)
	s.Require().NoError(err)
	s.Equal(itemPut, itemDeleted)

	status, _ := s.client.RawGet(fmt.Sprintf("/items/%d", item.ItemID), nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestValidationOverTheWire() {
	status, _ := s.client.RawPost("/items", map[string]interface{}{"price": 1.0}, nil)
	s.Equal(http.StatusUnprocessableEntity, status)

	status, _ = s.client.RawPost("/items", []byte(`{"name":"Pen","price":`), nil)
	s.Equal(http.StatusUnprocessableEntity, status)
}

func (s *IntegrationTestSuite) TestConcurrentUpdatesLastWriteWins() {
	item := backend.Item{}
	_, err := s.client.RawPost("/items",
		map[string]interface{}{"name": "Scale", "price": 10.0}, &item)
	s.Require().NoError(err)

	// concurrent updates to the same id may race, the last write commits
	prices := []float64{11.0, 12.0, 13.0, 14.0}
	var wg sync.WaitGroup
	for _, price := range prices {
		wg.Add(1)
		go func(price float64) {
			defer wg.Done()
			_, err := s.client.RawPut(fmt.Sprintf("/items/%d", item.ItemID),
				map[string]interface{}{"price": price}, nil)
			s.NoError(err)
		}(price)
	}
	wg.Wait()

	itemGet := backend.Item{}
	_, err = s.client.RawGet(fmt.Sprintf("/items/%d", item.ItemID), &itemGet)
	s.Require().NoError(err)
	s.Contains(prices, itemGet.Price)
	s.Equal("Scale", itemGet.Name)
}
