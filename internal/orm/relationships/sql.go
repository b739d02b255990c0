package relationships

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Querier is an interface for executing SQL queries, allowing for testing and instrumentation
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLStore reads association rows from PostgreSQL join tables
type SQLStore struct {
	db Querier
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store over db
func NewSQLStore(db Querier) *SQLStore {
	return &SQLStore{db: db}
}

// Service returns the service for rel. The join table's ForeignKey column
// holds source ids and its AssociationKey column holds target ids.
func (s *SQLStore) Service(rel *schema.Relationship) (Service, error) {
	if err := requireAssociation(rel); err != nil {
		return nil, err
	}
	if rel.ForeignKey == "" || rel.AssociationKey == "" {
		return nil, fmt.Errorf("association %s has no join columns", rel.MapName())
	}

	table := pq.QuoteIdentifier(rel.JoinTable)
	sourceCol := pq.QuoteIdentifier(rel.ForeignKey)
	targetCol := pq.QuoteIdentifier(rel.AssociationKey)

	return &sqlService{
		db: s.db,
		existsQuery: fmt.Sprintf(
			"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)",
			table, sourceCol, targetCol),
		collectQuery: fmt.Sprintf(
			"SELECT DISTINCT %s FROM %s WHERE %s = ANY($1)",
			sourceCol, table, targetCol),
	}, nil
}

type sqlService struct {
	db           Querier
	existsQuery  string
	collectQuery string
}

func (s *sqlService) Exists(ctx context.Context, sourceID, targetID interface{}) (bool, error) {
	if sourceID == nil || targetID == nil {
		return false, ErrNilID
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, s.existsQuery, sqlValue(sourceID), sqlValue(targetID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query association: %w", err)
	}
	return exists, nil
}

func (s *sqlService) CollectSourcesForTargets(ctx context.Context, targetIDs []interface{}) ([]interface{}, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}

	ids := make([]interface{}, len(targetIDs))
	for i, id := range targetIDs {
		if id == nil {
			return nil, ErrNilID
		}
		ids[i] = sqlValue(id)
	}

	rows, err := s.db.QueryContext(ctx, s.collectQuery, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query association: %w", err)
	}
	defer rows.Close()

	var result []interface{}
	for rows.Next() {
		var id interface{}
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan association row: %w", err)
		}
		if b, ok := id.([]byte); ok {
			id = string(b)
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// sqlValue renders ids the driver cannot encode natively as text
func sqlValue(id interface{}) interface{} {
	switch id.(type) {
	case string, int64, int, int32, []byte:
		return id
	}
	s, _ := idToString(id)
	return s
}
