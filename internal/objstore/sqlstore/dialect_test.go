package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	query := `UPDATE objects SET body = ? WHERE key = ? AND etag = ?`

	assert.Equal(t, query, sqliteDialect.rebind(query))
	assert.Equal(t, `UPDATE objects SET body = $1 WHERE key = $2 AND etag = $3`, postgresDialect.rebind(query))
}
