package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/items/core/csql"
)

// Item is the storage record for a single item
type Item struct {
	ItemID      int64     `json:"item_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemFields is a partial item update, keyed by column name. A key that
// is absent leaves the column unchanged. The description key may be
// present with a nil value, this clears the description.
type ItemFields map[string]interface{}

// ErrNoSuchItem is the defined outcome when an operation targets an id
// that is not in the store
var ErrNoSuchItem = errors.New("no such item")

const itemColumns = "item_id, name, description, price, created_at"

type itemStore struct {
	db  *csql.DB
	now func() time.Time

	insertQuery string
	listQuery   string
	readQuery   string
	lockQuery   string
	updateQuery string
	deleteQuery string
}

func newItemStore(db *csql.DB, now func() time.Time) *itemStore {
	schema := db.Schema

	_, err := db.Exec(fmt.Sprintf(`CREATE table IF NOT EXISTS %s."items"
(item_id SERIAL NOT NULL PRIMARY KEY,
name varchar NOT NULL,
description varchar,
price double precision NOT NULL,
created_at timestamp NOT NULL
);`, schema))
	if err != nil {
		panic(err)
	}

	return &itemStore{
		db:  db,
		now: now,
		insertQuery: fmt.Sprintf(`INSERT INTO %s."items" (name, description, price, created_at)
VALUES($1,$2,$3,$4) RETURNING `+itemColumns+`;`, schema),
		listQuery:   fmt.Sprintf(`SELECT `+itemColumns+` FROM %s."items" ORDER BY item_id;`, schema),
		readQuery:   fmt.Sprintf(`SELECT `+itemColumns+` FROM %s."items" WHERE item_id = $1;`, schema),
		lockQuery:   fmt.Sprintf(`SELECT `+itemColumns+` FROM %s."items" WHERE item_id = $1 FOR UPDATE;`, schema),
		updateQuery: fmt.Sprintf(`UPDATE %s."items" SET name = $2, description = $3, price = $4 WHERE item_id = $1 RETURNING `+itemColumns+`;`, schema),
		deleteQuery: fmt.Sprintf(`DELETE FROM %s."items" WHERE item_id = $1 RETURNING `+itemColumns+`;`, schema),
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *itemStore) scanItem(row scanner) (Item, error) {
	var item Item
	err := row.Scan(&item.ItemID, &item.Name, &item.Description, &item.Price, &item.CreatedAt)
	return item, err
}

// insert creates a new item. The store assigns the id and the creation time.
func (s *itemStore) insert(ctx context.Context, name string, description *string, price float64) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, err
	}
	item, err := s.scanItem(tx.QueryRow(s.insertQuery, name, description, price, s.now().UTC()))
	if err != nil {
		tx.Rollback()
		return Item{}, err
	}
	return item, tx.Commit()
}

// list returns all items, ordered by id. An empty store yields an empty
// sequence, not an error.
func (s *itemStore) list(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, s.listQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// getByID returns the item with the given id, or ErrNoSuchItem
func (s *itemStore) getByID(ctx context.Context, id int64) (Item, error) {
	item, err := s.scanItem(s.db.QueryRowContext(ctx, s.readQuery, id))
	if err == csql.ErrNoRows {
		return Item{}, ErrNoSuchItem
	}
	return item, err
}

// updateByID applies the supplied fields to the item and returns the
// updated record. Fields that are not supplied remain unchanged, an
// empty fields set is a valid no-op update. The id and created_at are
// never touched.
func (s *itemStore) updateByID(ctx context.Context, id int64, fields ItemFields) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, err
	}
	item, err := s.scanItem(tx.QueryRow(s.lockQuery, id))
	if err == csql.ErrNoRows {
		tx.Rollback()
		return Item{}, ErrNoSuchItem
	}
	if err != nil {
		tx.Rollback()
		return Item{}, err
	}

	for key, value := range fields {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok {
				tx.Rollback()
				return Item{}, fmt.Errorf("illegal name of type %T", value)
			}
			item.Name = name
		case "description":
			if value == nil {
				item.Description = nil
				break
			}
			description, ok := value.(string)
			if !ok {
				tx.Rollback()
				return Item{}, fmt.Errorf("illegal description of type %T", value)
			}
			item.Description = &description
		case "price":
			price, ok := value.(float64)
			if !ok {
				tx.Rollback()
				return Item{}, fmt.Errorf("illegal price of type %T", value)
			}
			item.Price = price
		default:
			tx.Rollback()
			return Item{}, fmt.Errorf("unknown field %s", key)
		}
	}

	item, err = s.scanItem(tx.QueryRow(s.updateQuery, id, item.Name, item.Description, item.Price))
	if err != nil {
		tx.Rollback()
		return Item{}, err
	}
	return item, tx.Commit()
}

// deleteByID removes the item permanently and returns the value that
// existed immediately before deletion, or ErrNoSuchItem
func (s *itemStore) deleteByID(ctx context.Context, id int64) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, err
	}
	item, err := s.scanItem(tx.QueryRow(s.deleteQuery, id))
	if err == csql.ErrNoRows {
		tx.Rollback()
		return Item{}, ErrNoSuchItem
	}
	if err != nil {
		tx.Rollback()
		return Item{}, err
	}
	return item, tx.Commit()
}
