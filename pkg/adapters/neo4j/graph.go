// Package neo4j provides a graph backend on a Neo4j database, storing
// vertices and edges as native nodes and relationships.
package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

const connectTimeout = 5 * time.Second

// Graph is a handle to one Neo4j database.
type Graph struct {
	driver neo4j.DriverWithContext
	dbName string
	name   string
	logger *slog.Logger
}

// Open creates a driver for cfg.URI and verifies connectivity.
func Open(ctx context.Context, cfg core.GraphConfig, logger *slog.Logger) (*Graph, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("neo4j graph requires a uri")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	logger.Debug("connected to neo4j graph", "uri", cfg.URI, "database", cfg.Database)

	return &Graph{
		driver: driver,
		dbName: cfg.Database,
		name:   cfg.Name,
		logger: logger,
	}, nil
}

func (g *Graph) Name() string {
	return g.name
}

func (g *Graph) Close() error {
	return g.driver.Close(context.Background())
}

// Reset deletes all nodes and relationships in the database.
func (g *Graph) Reset(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to reset neo4j graph: %w", err)
	}
	g.logger.Info("graph reset")
	return nil
}

// Begin opens a session and an explicit transaction on it. The session is
// closed when the transaction ends.
func (g *Graph) Begin(ctx context.Context, opts graph.TxOptions) (graph.Tx, error) {
	mode := neo4j.AccessModeWrite
	if opts.ReadOnly {
		mode = neo4j.AccessModeRead
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.dbName, AccessMode: mode})

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &neoTx{
		ctx:      context.WithoutCancel(ctx),
		session:  session,
		tx:       tx,
		readOnly: opts.ReadOnly,
	}, nil
}

type neoTx struct {
	ctx      context.Context
	session  neo4j.SessionWithContext
	tx       neo4j.ExplicitTransaction
	readOnly bool
	done     bool
}

func (t *neoTx) run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

func (t *neoTx) CreateVertex(ctx context.Context, label string, props core.Properties) (*core.Vertex, error) {
	if t.readOnly {
		return nil, graph.ErrReadOnlyTx
	}
	if label == "" {
		return nil, fmt.Errorf("vertex label is required")
	}
	stored, err := storable(props)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex: %w", err)
	}
	records, err := t.run(ctx,
		fmt.Sprintf("CREATE (n:%s $props) RETURN n", quote(label)),
		map[string]any{"props": stored},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex: %w", err)
	}
	vertices, err := nodesFrom(records)
	if err != nil {
		return nil, err
	}
	if len(vertices) != 1 {
		return nil, fmt.Errorf("create vertex returned %d nodes", len(vertices))
	}
	vertices[0].Label = label
	return vertices[0], nil
}

func (t *neoTx) CreateEdge(ctx context.Context, label string, from, to *core.Vertex) (*core.Edge, error) {
	if t.readOnly {
		return nil, graph.ErrReadOnlyTx
	}
	if from == nil || to == nil {
		return nil, fmt.Errorf("edge %s requires both endpoints", label)
	}
	records, err := t.run(ctx,
		fmt.Sprintf(`MATCH (a) WHERE elementId(a) = $from
			MATCH (b) WHERE elementId(b) = $to
			CREATE (a)-[r:%s]->(b) RETURN elementId(r)`, quote(label)),
		map[string]any{"from": from.ID, "to": to.ID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create edge %s: %w", label, err)
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("edge %s endpoints not found", label)
	}
	id, _ := records[0].Values[0].(string)
	return &core.Edge{ID: id, Label: label, From: from.ID, To: to.ID}, nil
}

func (t *neoTx) FindVertex(ctx context.Context, label string, filter core.Properties) (*core.Vertex, error) {
	vertices, err := t.findVertices(ctx, label, filter, 1)
	if err != nil {
		return nil, err
	}
	if len(vertices) == 0 {
		return nil, core.ErrVertexNotFound
	}
	return vertices[0], nil
}

func (t *neoTx) FindVertices(ctx context.Context, label string, filter core.Properties) ([]*core.Vertex, error) {
	return t.findVertices(ctx, label, filter, 0)
}

func (t *neoTx) findVertices(ctx context.Context, label string, filter core.Properties, limit int) ([]*core.Vertex, error) {
	var sb strings.Builder
	params := map[string]any{}

	sb.WriteString("MATCH (n")
	if label != "" {
		sb.WriteString(":" + quote(label))
	}
	sb.WriteString(")")

	i := 0
	for k, v := range filter {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		param := fmt.Sprintf("p%d", i)
		sb.WriteString(fmt.Sprintf("n.%s = $%s", quote(k), param))
		params[param] = v
		i++
	}
	sb.WriteString(" RETURN n ORDER BY elementId(n)")
	if limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	records, err := t.run(ctx, sb.String(), params)
	if err != nil {
		return nil, fmt.Errorf("failed to query vertices: %w", err)
	}
	return nodesFrom(records)
}

func (t *neoTx) Neighbors(ctx context.Context, v *core.Vertex, edgeLabel string, dir graph.Direction) ([]*core.Vertex, error) {
	if v == nil {
		return nil, fmt.Errorf("neighbors of nil vertex")
	}
	pattern := "(a)-[r:%s]->(n)"
	if dir == graph.In {
		pattern = "(a)<-[r:%s]-(n)"
	}
	cypher := fmt.Sprintf("MATCH "+pattern+" WHERE elementId(a) = $id RETURN n ORDER BY elementId(r)", quote(edgeLabel))

	records, err := t.run(ctx, cypher, map[string]any{"id": v.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	return nodesFrom(records)
}

func (t *neoTx) HasEdge(ctx context.Context, label string, from, to *core.Vertex) (bool, error) {
	if from == nil || to == nil {
		return false, nil
	}
	records, err := t.run(ctx,
		fmt.Sprintf(`MATCH (a)-[r:%s]->(b) WHERE elementId(a) = $from AND elementId(b) = $to RETURN count(r)`, quote(label)),
		map[string]any{"from": from.ID, "to": to.ID},
	)
	if err != nil {
		return false, fmt.Errorf("failed to check edge %s: %w", label, err)
	}
	return countOf(records) > 0, nil
}

func (t *neoTx) CountEdges(ctx context.Context, label string) (int, error) {
	cypher := "MATCH ()-[r]->() RETURN count(r)"
	if label != "" {
		cypher = fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", quote(label))
	}
	records, err := t.run(ctx, cypher, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return countOf(records), nil
}

func (t *neoTx) SetProperties(ctx context.Context, v *core.Vertex, props core.Properties) error {
	if t.readOnly {
		return graph.ErrReadOnlyTx
	}
	if v == nil {
		return fmt.Errorf("set properties on nil vertex")
	}
	stored, err := storable(props)
	if err != nil {
		return fmt.Errorf("failed to set properties: %w", err)
	}
	if _, err := t.run(ctx,
		"MATCH (n) WHERE elementId(n) = $id SET n += $props",
		map[string]any{"id": v.ID, "props": stored},
	); err != nil {
		return fmt.Errorf("failed to set properties: %w", err)
	}
	if v.Properties == nil {
		v.Properties = core.Properties{}
	}
	for k, val := range stored {
		v.Properties[k] = val
	}
	return nil
}

func (t *neoTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	defer func() { _ = t.session.Close(t.ctx) }()
	return t.tx.Commit(t.ctx)
}

func (t *neoTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer func() { _ = t.session.Close(t.ctx) }()
	return t.tx.Rollback(t.ctx)
}

func nodesFrom(records []*neo4j.Record) ([]*core.Vertex, error) {
	vertices := make([]*core.Vertex, 0, len(records))
	for _, rec := range records {
		node, ok := rec.Values[0].(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected record value %T", rec.Values[0])
		}
		v := &core.Vertex{ID: node.ElementId, Properties: core.Properties(node.Props)}
		if v.Properties == nil {
			v.Properties = core.Properties{}
		}
		if len(node.Labels) > 0 {
			v.Label = node.Labels[0]
		}
		vertices = append(vertices, v)
	}
	return vertices, nil
}

func countOf(records []*neo4j.Record) int {
	if len(records) == 0 || len(records[0].Values) == 0 {
		return 0
	}
	n, _ := records[0].Values[0].(int64)
	return int(n)
}

// quote escapes a label or property key for use as a Cypher identifier.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
