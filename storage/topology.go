package storage

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"mq-designer/topology"
)

var json = jsoniter.ConfigFastest

func encodeArgs(args map[string]interface{}) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode args: %w", err)
	}
	return string(raw), nil
}

func decodeArgs(raw string) (map[string]interface{}, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("failed to decode args: %w", err)
	}
	return args, nil
}

// CreateExchange inserts an exchange into a design.
func (s *Store) CreateExchange(designID string, ex *topology.Exchange) error {
	args, err := encodeArgs(ex.Args)
	if err != nil {
		return err
	}
	query := `INSERT INTO exchanges (design_id, name, kind, durable, auto_delete, internal, alternate_exchange, args)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, designID, ex.Name, ex.Kind, ex.Durable, ex.AutoDelete, ex.Internal, ex.AlternateExchange, args)
	if err != nil {
		return fmt.Errorf("failed to create exchange: %w", err)
	}
	return nil
}

// UpdateExchange updates the exchange currently named current. On a rename
// the bindings and alternate-exchange references pointing at it follow.
func (s *Store) UpdateExchange(designID, current string, ex *topology.Exchange) error {
	args, err := encodeArgs(ex.Args)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `UPDATE exchanges SET name = ?, kind = ?, durable = ?, auto_delete = ?, internal = ?, alternate_exchange = ?, args = ?
			  WHERE design_id = ? AND name = ?`
	if _, err := tx.Exec(query, ex.Name, ex.Kind, ex.Durable, ex.AutoDelete, ex.Internal, ex.AlternateExchange, args, designID, current); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update exchange: %w", err)
	}

	if current != ex.Name {
		if _, err := tx.Exec(`UPDATE bindings SET source = ? WHERE design_id = ? AND source = ?`, ex.Name, designID, current); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update binding sources: %w", err)
		}
		if _, err := tx.Exec(`UPDATE exchanges SET alternate_exchange = ? WHERE design_id = ? AND alternate_exchange = ?`, ex.Name, designID, current); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update alternate exchange references: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteExchange deletes an exchange and its bindings.
func (s *Store) DeleteExchange(designID, name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM bindings WHERE design_id = ? AND source = ?", designID, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete exchange bindings: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM exchanges WHERE design_id = ? AND name = ?", designID, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete exchange: %w", err)
	}

	return tx.Commit()
}

// CreateQueue inserts a queue into a design.
func (s *Store) CreateQueue(designID string, q *topology.Queue) error {
	args, err := encodeArgs(q.Args)
	if err != nil {
		return err
	}
	query := `INSERT INTO queues (design_id, name, durable, exclusive, auto_delete, max_length, args)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, designID, q.Name, q.Durable, q.Exclusive, q.AutoDelete, q.MaxLength, args)
	if err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	return nil
}

// UpdateQueue updates the queue currently named current. On a rename the
// bindings pointing at it follow.
func (s *Store) UpdateQueue(designID, current string, q *topology.Queue) error {
	args, err := encodeArgs(q.Args)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `UPDATE queues SET name = ?, durable = ?, exclusive = ?, auto_delete = ?, max_length = ?, args = ?
			  WHERE design_id = ? AND name = ?`
	if _, err := tx.Exec(query, q.Name, q.Durable, q.Exclusive, q.AutoDelete, q.MaxLength, args, designID, current); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update queue: %w", err)
	}

	if current != q.Name {
		if _, err := tx.Exec(`UPDATE bindings SET destination = ? WHERE design_id = ? AND destination = ?`, q.Name, designID, current); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update binding destinations: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteQueue deletes a queue and its bindings.
func (s *Store) DeleteQueue(designID, name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM bindings WHERE design_id = ? AND destination = ?", designID, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete queue bindings: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM queues WHERE design_id = ? AND name = ?", designID, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete queue: %w", err)
	}

	return tx.Commit()
}

// CreateBinding inserts a binding into a design.
func (s *Store) CreateBinding(designID string, b *topology.Binding) error {
	args, err := encodeArgs(b.Args)
	if err != nil {
		return err
	}
	query := `INSERT INTO bindings (id, design_id, source, destination, routing_key, args) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, b.ID, designID, b.Source, b.Destination, b.RoutingKey, args)
	if err != nil {
		return fmt.Errorf("failed to create binding: %w", err)
	}
	return nil
}

// DeleteBinding deletes a binding by its ID.
func (s *Store) DeleteBinding(designID, id string) error {
	query := `DELETE FROM bindings WHERE design_id = ? AND id = ?`
	_, err := s.db.Exec(query, designID, id)
	if err != nil {
		return fmt.Errorf("failed to delete binding: %w", err)
	}
	return nil
}

// CreatePolicy inserts a policy into a design.
func (s *Store) CreatePolicy(designID string, p *topology.Policy) error {
	definition, err := encodeArgs(p.Definition)
	if err != nil {
		return err
	}
	query := `INSERT INTO policies (design_id, name, pattern, apply_to, priority, definition) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.Exec(query, designID, p.Name, p.Pattern, p.ApplyTo, p.Priority, definition)
	if err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	return nil
}

// UpdatePolicy updates the policy currently named current, renaming it when p.Name differs.
func (s *Store) UpdatePolicy(designID, current string, p *topology.Policy) error {
	definition, err := encodeArgs(p.Definition)
	if err != nil {
		return err
	}
	query := `UPDATE policies SET name = ?, pattern = ?, apply_to = ?, priority = ?, definition = ?
			  WHERE design_id = ? AND name = ?`
	_, err = s.db.Exec(query, p.Name, p.Pattern, p.ApplyTo, p.Priority, definition, designID, current)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	return nil
}

// DeletePolicy deletes a policy by its name.
func (s *Store) DeletePolicy(designID, name string) error {
	query := `DELETE FROM policies WHERE design_id = ? AND name = ?`
	_, err := s.db.Exec(query, designID, name)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	return nil
}

// LoadTopology reads the complete topology of a design. Exchanges, queues and
// policies come back ordered by name, bindings in insertion order.
func (s *Store) LoadTopology(designID string) (*topology.Config, error) {
	cfg := &topology.Config{}

	rows, err := s.db.Query(`SELECT name, kind, durable, auto_delete, internal, alternate_exchange, args
		FROM exchanges WHERE design_id = ? ORDER BY name`, designID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchanges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ex topology.Exchange
		var args string
		if err := rows.Scan(&ex.Name, &ex.Kind, &ex.Durable, &ex.AutoDelete, &ex.Internal, &ex.AlternateExchange, &args); err != nil {
			return nil, fmt.Errorf("failed to scan exchange row: %w", err)
		}
		if ex.Args, err = decodeArgs(args); err != nil {
			return nil, err
		}
		cfg.Exchanges = append(cfg.Exchanges, ex)
	}

	qrows, err := s.db.Query(`SELECT name, durable, exclusive, auto_delete, max_length, args
		FROM queues WHERE design_id = ? ORDER BY name`, designID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queues: %w", err)
	}
	defer qrows.Close()
	for qrows.Next() {
		var q topology.Queue
		var args string
		if err := qrows.Scan(&q.Name, &q.Durable, &q.Exclusive, &q.AutoDelete, &q.MaxLength, &args); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		if q.Args, err = decodeArgs(args); err != nil {
			return nil, err
		}
		cfg.Queues = append(cfg.Queues, q)
	}

	brows, err := s.db.Query(`SELECT id, source, destination, routing_key, args
		FROM bindings WHERE design_id = ? ORDER BY rowid`, designID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bindings: %w", err)
	}
	defer brows.Close()
	for brows.Next() {
		var b topology.Binding
		var args string
		if err := brows.Scan(&b.ID, &b.Source, &b.Destination, &b.RoutingKey, &args); err != nil {
			return nil, fmt.Errorf("failed to scan binding row: %w", err)
		}
		if b.Args, err = decodeArgs(args); err != nil {
			return nil, err
		}
		cfg.Bindings = append(cfg.Bindings, b)
	}

	prows, err := s.db.Query(`SELECT name, pattern, apply_to, priority, definition
		FROM policies WHERE design_id = ? ORDER BY name`, designID)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var p topology.Policy
		var definition string
		if err := prows.Scan(&p.Name, &p.Pattern, &p.ApplyTo, &p.Priority, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		if p.Definition, err = decodeArgs(definition); err != nil {
			return nil, err
		}
		cfg.Policies = append(cfg.Policies, p)
	}

	return cfg, nil
}

// ReplaceTopology swaps the whole stored topology of a design for cfg in one
// transaction. Used by definitions import.
func (s *Store) ReplaceTopology(designID string, cfg *topology.Config) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, table := range []string{"bindings", "exchanges", "queues", "policies"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE design_id = ?", designID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i := range cfg.Exchanges {
		ex := &cfg.Exchanges[i]
		args, err := encodeArgs(ex.Args)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO exchanges (design_id, name, kind, durable, auto_delete, internal, alternate_exchange, args)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			designID, ex.Name, ex.Kind, ex.Durable, ex.AutoDelete, ex.Internal, ex.AlternateExchange, args); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert exchange %s: %w", ex.Name, err)
		}
	}
	for i := range cfg.Queues {
		q := &cfg.Queues[i]
		args, err := encodeArgs(q.Args)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO queues (design_id, name, durable, exclusive, auto_delete, max_length, args)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			designID, q.Name, q.Durable, q.Exclusive, q.AutoDelete, q.MaxLength, args); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert queue %s: %w", q.Name, err)
		}
	}
	for i := range cfg.Bindings {
		b := &cfg.Bindings[i]
		args, err := encodeArgs(b.Args)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO bindings (id, design_id, source, destination, routing_key, args)
			VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, designID, b.Source, b.Destination, b.RoutingKey, args); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert binding %s: %w", b.ID, err)
		}
	}
	for i := range cfg.Policies {
		p := &cfg.Policies[i]
		definition, err := encodeArgs(p.Definition)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO policies (design_id, name, pattern, apply_to, priority, definition)
			VALUES (?, ?, ?, ?, ?, ?)`,
			designID, p.Name, p.Pattern, p.ApplyTo, p.Priority, definition); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert policy %s: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

// DeleteOrphanedBindings удаляет привязки, ссылающиеся на несуществующие обменники или очереди.
func (s *Store) DeleteOrphanedBindings() (int64, error) {
	query := `DELETE FROM bindings WHERE
		NOT EXISTS (SELECT 1 FROM exchanges e WHERE e.design_id = bindings.design_id AND e.name = bindings.source)
		OR NOT EXISTS (SELECT 1 FROM queues q WHERE q.design_id = bindings.design_id AND q.name = bindings.destination)`
	res, err := s.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned bindings: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rowsAffected, nil
}
