package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// maxInClause bounds the number of ids bound into one IN (...) list.
const maxInClause = 500

// Placeholder styles of SQL backends.
const (
	PlaceholderQuestion = iota // ?
	PlaceholderDollar          // $1, $2, ...
)

// BaseSQLGraph stores a property graph in three tables (vertices,
// vertex_properties, edges) through database/sql. Embed it in concrete
// backends; they only open the connection and prepare the schema.
type BaseSQLGraph struct {
	DB          *sql.DB
	GraphName   string
	Placeholder int
	Logger      *slog.Logger
}

// Name returns the instance name.
func (b *BaseSQLGraph) Name() string {
	return b.GraphName
}

// Close closes the database connection.
func (b *BaseSQLGraph) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing graph connection")
		return b.DB.Close()
	}
	return nil
}

// Begin starts a transaction. Read-only transactions are enforced by the
// graph layer rather than the driver since not every driver supports them.
func (b *BaseSQLGraph) Begin(ctx context.Context, opts TxOptions) (Tx, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTx{tx: tx, placeholder: b.Placeholder, readOnly: opts.ReadOnly}, nil
}

// Reset deletes all vertices, properties and edges.
func (b *BaseSQLGraph) Reset(ctx context.Context) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"edges", "vertex_properties", "vertices"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	b.logger().Info("graph reset")
	return tx.Commit()
}

func (b *BaseSQLGraph) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

type sqlTx struct {
	tx          *sql.Tx
	placeholder int
	readOnly    bool
}

// rebind rewrites ? placeholders for backends that use numbered parameters.
func (t *sqlTx) rebind(query string) string {
	if t.placeholder != PlaceholderDollar {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.ExecContext(ctx, t.rebind(query), args...)
	return err
}

func (t *sqlTx) CreateVertex(ctx context.Context, label string, props core.Properties) (*core.Vertex, error) {
	if t.readOnly {
		return nil, ErrReadOnlyTx
	}
	if label == "" {
		return nil, fmt.Errorf("vertex label is required")
	}

	v := &core.Vertex{ID: newID(), Label: label, Properties: props.Clone()}
	if err := t.exec(ctx, `INSERT INTO vertices (id, label) VALUES (?, ?)`, v.ID, v.Label); err != nil {
		return nil, fmt.Errorf("failed to insert vertex: %w", err)
	}
	if err := t.writeProperties(ctx, v.ID, props); err != nil {
		return nil, err
	}
	return v, nil
}

func (t *sqlTx) CreateEdge(ctx context.Context, label string, from, to *core.Vertex) (*core.Edge, error) {
	if t.readOnly {
		return nil, ErrReadOnlyTx
	}
	if from == nil || to == nil {
		return nil, fmt.Errorf("edge %s requires both endpoints", label)
	}

	e := &core.Edge{ID: newID(), Label: label, From: from.ID, To: to.ID}
	if err := t.exec(ctx,
		`INSERT INTO edges (id, label, from_id, to_id) VALUES (?, ?, ?, ?)`,
		e.ID, e.Label, e.From, e.To,
	); err != nil {
		return nil, fmt.Errorf("failed to insert edge %s: %w", label, err)
	}
	return e, nil
}

func (t *sqlTx) FindVertex(ctx context.Context, label string, filter core.Properties) (*core.Vertex, error) {
	vertices, err := t.findVertices(ctx, label, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(vertices) == 0 {
		return nil, core.ErrVertexNotFound
	}
	return vertices[0], nil
}

func (t *sqlTx) FindVertices(ctx context.Context, label string, filter core.Properties) ([]*core.Vertex, error) {
	return t.findVertices(ctx, label, filter, 0)
}

func (t *sqlTx) findVertices(ctx context.Context, label string, filter core.Properties, limit int) ([]*core.Vertex, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString(`SELECT v.id, v.label FROM vertices v WHERE 1 = 1`)
	if label != "" {
		sb.WriteString(` AND v.label = ?`)
		args = append(args, label)
	}

	// sorted for stable query text
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		encoded, err := encodeValue(filter[k])
		if err != nil {
			return nil, fmt.Errorf("invalid filter value for %s: %w", k, err)
		}
		sb.WriteString(` AND EXISTS (SELECT 1 FROM vertex_properties p WHERE p.vertex_id = v.id AND p.prop_key = ? AND p.prop_value = ?)`)
		args = append(args, k, encoded)
	}
	sb.WriteString(` ORDER BY v.id`)
	if limit > 0 {
		sb.WriteString(fmt.Sprintf(` LIMIT %d`, limit))
	}

	return t.queryVertices(ctx, sb.String(), args...)
}

func (t *sqlTx) Neighbors(ctx context.Context, v *core.Vertex, edgeLabel string, dir Direction) ([]*core.Vertex, error) {
	if v == nil {
		return nil, fmt.Errorf("neighbors of nil vertex")
	}
	query := `SELECT n.id, n.label FROM edges e JOIN vertices n ON n.id = e.to_id
		WHERE e.from_id = ? AND e.label = ? ORDER BY e.id`
	if dir == In {
		query = `SELECT n.id, n.label FROM edges e JOIN vertices n ON n.id = e.from_id
		WHERE e.to_id = ? AND e.label = ? ORDER BY e.id`
	}
	return t.queryVertices(ctx, query, v.ID, edgeLabel)
}

func (t *sqlTx) HasEdge(ctx context.Context, label string, from, to *core.Vertex) (bool, error) {
	if from == nil || to == nil {
		return false, nil
	}
	var count int
	err := t.tx.QueryRowContext(ctx,
		t.rebind(`SELECT COUNT(*) FROM edges WHERE label = ? AND from_id = ? AND to_id = ?`),
		label, from.ID, to.ID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check edge %s: %w", label, err)
	}
	return count > 0, nil
}

func (t *sqlTx) CountEdges(ctx context.Context, label string) (int, error) {
	query := `SELECT COUNT(*) FROM edges`
	var args []any
	if label != "" {
		query += ` WHERE label = ?`
		args = append(args, label)
	}
	var count int
	if err := t.tx.QueryRowContext(ctx, t.rebind(query), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return count, nil
}

func (t *sqlTx) SetProperties(ctx context.Context, v *core.Vertex, props core.Properties) error {
	if t.readOnly {
		return ErrReadOnlyTx
	}
	if v == nil {
		return fmt.Errorf("set properties on nil vertex")
	}
	for k := range props {
		if err := t.exec(ctx, `DELETE FROM vertex_properties WHERE vertex_id = ? AND prop_key = ?`, v.ID, k); err != nil {
			return fmt.Errorf("failed to clear property %s: %w", k, err)
		}
	}
	if err := t.writeProperties(ctx, v.ID, props); err != nil {
		return err
	}
	if v.Properties == nil {
		v.Properties = core.Properties{}
	}
	for k, val := range props {
		v.Properties[k] = val
	}
	return nil
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *sqlTx) writeProperties(ctx context.Context, vertexID string, props core.Properties) error {
	for k, val := range props {
		encoded, err := encodeValue(val)
		if err != nil {
			return fmt.Errorf("invalid value for property %s: %w", k, err)
		}
		if err := t.exec(ctx,
			`INSERT INTO vertex_properties (vertex_id, prop_key, prop_value) VALUES (?, ?, ?)`,
			vertexID, k, encoded,
		); err != nil {
			return fmt.Errorf("failed to insert property %s: %w", k, err)
		}
	}
	return nil
}

func (t *sqlTx) queryVertices(ctx context.Context, query string, args ...any) ([]*core.Vertex, error) {
	rows, err := t.tx.QueryContext(ctx, t.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vertices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vertices []*core.Vertex
	for rows.Next() {
		v := &core.Vertex{Properties: core.Properties{}}
		if err := rows.Scan(&v.ID, &v.Label); err != nil {
			return nil, fmt.Errorf("failed to scan vertex: %w", err)
		}
		vertices = append(vertices, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vertices: %w", err)
	}
	// rows must be closed before the next query on the same transaction
	_ = rows.Close()

	if err := t.loadProperties(ctx, vertices); err != nil {
		return nil, err
	}
	return vertices, nil
}

// loadProperties fills the property bags of vertices in batches.
func (t *sqlTx) loadProperties(ctx context.Context, vertices []*core.Vertex) error {
	byID := make(map[string][]*core.Vertex, len(vertices))
	ids := make([]string, 0, len(vertices))
	for _, v := range vertices {
		if _, ok := byID[v.ID]; !ok {
			ids = append(ids, v.ID)
		}
		byID[v.ID] = append(byID[v.ID], v)
	}

	for start := 0; start < len(ids); start += maxInClause {
		end := min(start+maxInClause, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := `SELECT vertex_id, prop_key, prop_value FROM vertex_properties WHERE vertex_id IN (` +
			strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", ") + `)`

		if err := t.scanProperties(ctx, query, args, byID); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) scanProperties(ctx context.Context, query string, args []any, byID map[string][]*core.Vertex) error {
	rows, err := t.tx.QueryContext(ctx, t.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to query properties: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, key, raw string
		if err := rows.Scan(&id, &key, &raw); err != nil {
			return fmt.Errorf("failed to scan property: %w", err)
		}
		val, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("failed to decode property %s of %s: %w", key, id, err)
		}
		for _, v := range byID[id] {
			v.Properties[key] = val
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating properties: %w", err)
	}
	return nil
}

// newID returns a time-ordered id so that ORDER BY id follows creation order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func encodeValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeValue(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}
