package repository

import (
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/shift-rota-api/internal/models"
)

// fallback returns exec when set, otherwise the pool.
func fallback(db *sqlx.DB, exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return db
}

// idArray binds ids as a text[] for "= ANY($n)" filters.
func idArray(ids []models.ID) interface{} {
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = id.String()
	}
	return pq.Array(values)
}
