package store

import (
	"context"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// PutEntity inserts or replaces an entity.
func (s *Store) PutEntity(ctx context.Context, e model.Entity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity (code, name, parent_code, ownership_percentage, functional_currency,
			reporting_currency, consolidation_method, acquisition_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			parent_code = excluded.parent_code,
			ownership_percentage = excluded.ownership_percentage,
			functional_currency = excluded.functional_currency,
			reporting_currency = excluded.reporting_currency,
			consolidation_method = excluded.consolidation_method,
			acquisition_date = excluded.acquisition_date
	`, e.Code, e.Name, e.ParentCode, e.OwnershipPercentage, e.FunctionalCurrency,
		e.ReportingCurrency, string(e.Method), e.AcquisitionDate)
	if err != nil {
		return fmt.Errorf("write entity %s: %w", e.Code, err)
	}
	return nil
}

// ListEntities returns every entity ordered by code.
func (s *Store) ListEntities(ctx context.Context) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, parent_code, ownership_percentage, functional_currency,
			reporting_currency, consolidation_method, acquisition_date
		FROM entity
		ORDER BY code COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []model.Entity{}
	for rows.Next() {
		var e model.Entity
		var method string
		if err := rows.Scan(&e.Code, &e.Name, &e.ParentCode, &e.OwnershipPercentage,
			&e.FunctionalCurrency, &e.ReportingCurrency, &method, &e.AcquisitionDate); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.Method = model.ConsolidationMethod(method)
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

// PutAccount inserts or replaces a chart-of-accounts entry.
func (s *Store) PutAccount(ctx context.Context, a model.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account (code, name, class, category, monetary)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			class = excluded.class,
			category = excluded.category,
			monetary = excluded.monetary
	`, a.Code, a.Name, string(a.Class), a.Category, boolInt(a.Monetary))
	if err != nil {
		return fmt.Errorf("write account %s: %w", a.Code, err)
	}
	return nil
}

// ListAccounts returns the chart of accounts ordered by code.
func (s *Store) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, class, category, monetary
		FROM account
		ORDER BY code COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		var class string
		var monetary int
		if err := rows.Scan(&a.Code, &a.Name, &class, &a.Category, &monetary); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Class = model.AccountClass(class)
		a.Monetary = monetary != 0
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// PutFXRate inserts a rate or overwrites the rate with the same
// (from, to, rate_type, date) key.
func (s *Store) PutFXRate(ctx context.Context, r model.FXRate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fx_rate (from_currency, to_currency, rate_type, date, rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_currency, to_currency, rate_type, date) DO UPDATE SET
			rate = excluded.rate
	`, r.From, r.To, string(r.RateType), r.Date, r.Rate)
	if err != nil {
		return fmt.Errorf("write fx rate %s: %w", r.Key(), err)
	}
	return nil
}

// ListFXRates returns every rate ordered by its key.
func (s *Store) ListFXRates(ctx context.Context) ([]model.FXRate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_currency, to_currency, rate_type, date, rate
		FROM fx_rate
		ORDER BY from_currency, to_currency, rate_type, date COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query fx rates: %w", err)
	}
	defer rows.Close()

	rates := []model.FXRate{}
	for rows.Next() {
		var r model.FXRate
		var rt string
		if err := rows.Scan(&r.From, &r.To, &rt, &r.Date, &r.Rate); err != nil {
			return nil, fmt.Errorf("scan fx rate: %w", err)
		}
		r.RateType = model.RateType(rt)
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fx rates: %w", err)
	}
	return rates, nil
}

// PutRule inserts or replaces an elimination rule.
func (s *Store) PutRule(ctx context.Context, r model.EliminationRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO elimination_rule (id, rule_type, entity_a, entity_b, account_class,
			priority, enabled, required, suspense_account)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rule_type = excluded.rule_type,
			entity_a = excluded.entity_a,
			entity_b = excluded.entity_b,
			account_class = excluded.account_class,
			priority = excluded.priority,
			enabled = excluded.enabled,
			required = excluded.required,
			suspense_account = excluded.suspense_account
	`, r.ID, r.RuleType, r.EntityA, r.EntityB, r.AccountClass, r.Priority,
		boolInt(r.Enabled), boolInt(r.Required), r.SuspenseAccount)
	if err != nil {
		return fmt.Errorf("write elimination rule %s: %w", r.ID, err)
	}
	return nil
}

// ListRules returns elimination rules ordered by priority then id.
func (s *Store) ListRules(ctx context.Context) ([]model.EliminationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_type, entity_a, entity_b, account_class, priority, enabled, required, suspense_account
		FROM elimination_rule
		ORDER BY priority ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query elimination rules: %w", err)
	}
	defer rows.Close()

	rules := []model.EliminationRule{}
	for rows.Next() {
		var r model.EliminationRule
		var enabled, required int
		if err := rows.Scan(&r.ID, &r.RuleType, &r.EntityA, &r.EntityB, &r.AccountClass,
			&r.Priority, &enabled, &required, &r.SuspenseAccount); err != nil {
			return nil, fmt.Errorf("scan elimination rule: %w", err)
		}
		r.Enabled = enabled != 0
		r.Required = required != 0
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elimination rules: %w", err)
	}
	return rules, nil
}

// PutTransaction inserts or replaces one intercompany transaction.
func (s *Store) PutTransaction(ctx context.Context, t model.IntercompanyTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ic_transaction (id, entity_code, counterparty_code, account_code, ic_class,
			period, amount, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entity_code = excluded.entity_code,
			counterparty_code = excluded.counterparty_code,
			account_code = excluded.account_code,
			ic_class = excluded.ic_class,
			period = excluded.period,
			amount = excluded.amount,
			currency = excluded.currency
	`, t.ID, t.EntityCode, t.CounterpartyCode, t.AccountCode, t.ICClass, t.Period, t.Amount, t.Currency)
	if err != nil {
		return fmt.Errorf("write ic transaction %s: %w", t.ID, err)
	}
	return nil
}

// ListTransactions returns intercompany transactions ordered by period
// then id. An empty period returns every period.
func (s *Store) ListTransactions(ctx context.Context, period string) ([]model.IntercompanyTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_code, counterparty_code, account_code, ic_class, period, amount, currency
		FROM ic_transaction
		WHERE ? = '' OR period = ?
		ORDER BY period ASC, id COLLATE BINARY ASC
	`, period, period)
	if err != nil {
		return nil, fmt.Errorf("query ic transactions: %w", err)
	}
	defer rows.Close()

	txns := []model.IntercompanyTransaction{}
	for rows.Next() {
		var t model.IntercompanyTransaction
		if err := rows.Scan(&t.ID, &t.EntityCode, &t.CounterpartyCode, &t.AccountCode,
			&t.ICClass, &t.Period, &t.Amount, &t.Currency); err != nil {
			return nil, fmt.Errorf("scan ic transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ic transactions: %w", err)
	}
	return txns, nil
}

// LoadRefData reads the full reference data snapshot for a run in period.
// GroupEntity and Tolerance are left for the caller.
func (s *Store) LoadRefData(ctx context.Context, period string) (*engine.RefData, error) {
	entities, err := s.ListEntities(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	balances, err := s.ListBalances(ctx, "")
	if err != nil {
		return nil, err
	}
	rates, err := s.ListFXRates(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	txns, err := s.ListTransactions(ctx, period)
	if err != nil {
		return nil, err
	}

	ref := &engine.RefData{
		Period:       period,
		Entities:     make(map[string]model.Entity, len(entities)),
		Accounts:     make(map[string]model.Account, len(accounts)),
		Balances:     balances,
		Rates:        rates,
		Rules:        rules,
		Transactions: txns,
	}
	for _, e := range entities {
		ref.Entities[e.Code] = e
	}
	for _, a := range accounts {
		ref.Accounts[a.Code] = a
	}
	return ref, nil
}
