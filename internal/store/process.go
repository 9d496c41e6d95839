package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// SaveProcess upserts the process row and replaces its nodes and
// connections in one transaction. Connections keep the given order.
func (s *Store) SaveProcess(ctx context.Context, p model.ProcessDefinition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	status := p.Status
	if status == "" {
		status = model.ProcessDraft
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO process (id, name, fiscal_year, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			fiscal_year = excluded.fiscal_year,
			status = excluded.status
	`, p.ID, p.Name, p.FiscalYear, string(status))
	if err != nil {
		return fmt.Errorf("write process %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM node WHERE process_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM connection WHERE process_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clear connections: %w", err)
	}

	for _, n := range p.Nodes {
		cfg := n.Config
		if cfg == nil {
			cfg = map[string]any{}
		}
		cfgJSON, err := model.MarshalCanonical(cfg)
		if err != nil {
			return fmt.Errorf("marshal config of node %s: %w", n.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO node (process_id, id, type, title, sequence_order, config, enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, n.ID, string(n.Type), n.Title, n.SequenceOrder, string(cfgJSON), boolInt(n.Enabled))
		if err != nil {
			return fmt.Errorf("write node %s: %w", n.ID, err)
		}
	}

	for _, c := range p.Connections {
		ct := c.Type
		if ct == "" {
			ct = model.ConnectionSequential
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO connection (process_id, from_node_id, to_node_id, connection_type)
			VALUES (?, ?, ?, ?)
		`, p.ID, c.From, c.To, string(ct))
		if err != nil {
			return fmt.Errorf("write connection %s -> %s: %w", c.From, c.To, err)
		}
	}

	return tx.Commit()
}

// LoadProcess reads a process with its nodes and connections.
// Returns ErrNotFound if the process does not exist.
func (s *Store) LoadProcess(ctx context.Context, id string) (model.ProcessDefinition, error) {
	var p model.ProcessDefinition
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, fiscal_year, status FROM process WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.FiscalYear, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProcessDefinition{}, fmt.Errorf("process %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.ProcessDefinition{}, fmt.Errorf("read process %s: %w", id, err)
	}
	p.Status = model.ProcessStatus(status)

	if p.Nodes, err = s.readNodes(ctx, id); err != nil {
		return model.ProcessDefinition{}, err
	}
	if p.Connections, err = s.readConnections(ctx, id); err != nil {
		return model.ProcessDefinition{}, err
	}
	return p, nil
}

// ListProcesses returns every process without nodes or connections,
// ordered by id.
func (s *Store) ListProcesses(ctx context.Context) ([]model.ProcessDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, fiscal_year, status FROM process
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	defer rows.Close()

	procs := []model.ProcessDefinition{}
	for rows.Next() {
		var p model.ProcessDefinition
		var status string
		if err := rows.Scan(&p.ID, &p.Name, &p.FiscalYear, &status); err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		p.Status = model.ProcessStatus(status)
		procs = append(procs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processes: %w", err)
	}
	return procs, nil
}

func (s *Store) readNodes(ctx context.Context, processID string) ([]model.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, title, sequence_order, config, enabled
		FROM node
		WHERE process_id = ?
		ORDER BY sequence_order ASC, id COLLATE BINARY ASC
	`, processID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []model.Node{}
	for rows.Next() {
		var n model.Node
		var typ, cfgJSON string
		var enabled int
		if err := rows.Scan(&n.ID, &typ, &n.Title, &n.SequenceOrder, &cfgJSON, &enabled); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.ProcessID = processID
		n.Type = model.NodeType(typ)
		n.Enabled = enabled != 0
		if err := json.Unmarshal([]byte(cfgJSON), &n.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config of node %s: %w", n.ID, err)
		}
		if len(n.Config) == 0 {
			n.Config = nil
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func (s *Store) readConnections(ctx context.Context, processID string) ([]model.Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_node_id, to_node_id, connection_type
		FROM connection
		WHERE process_id = ?
		ORDER BY seq ASC
	`, processID)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	conns := []model.Connection{}
	for rows.Next() {
		var c model.Connection
		var ct string
		if err := rows.Scan(&c.From, &c.To, &ct); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		c.Type = model.ConnectionType(ct)
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return conns, nil
}
