/*
Package backend implements the items backend

The backend manages a single Postgres relation "items" and provides a RESTful API for it.

An item carries an integer identifier assigned by the store, a name, an optional
description, a price and a creation timestamp:

	{
	  "item_id": 1,
	  "name": "Pen",
	  "description": null,
	  "price": 1.5,
	  "created_at": "2022-01-01T12:00:00Z"
	}

The backend creates the following REST routes:

	GET /items
	POST /items
	GET /items/{item_id}
	PUT /items/{item_id}
	DELETE /items/{item_id}

POST validates the request against the create schema (name and price required) and
answers 201 with the stored item. PUT is a partial update: only the keys present in
the request body are changed, a key with a null value clears a nullable column, and
an empty object is a valid no-op. DELETE answers with the snapshot of the item as it
existed before deletion. Requests for identifiers that do not exist answer 404,
invalid payloads answer 422 with the offending fields listed in the body.

Each request runs as a single database transaction. There is no optimistic locking,
concurrent updates to the same item race and the last write commits.

If the builder carries a Notifier, the backend notifies it after every successful
create, update and delete with the item JSON as payload.
*/
package backend
