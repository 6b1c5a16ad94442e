package postgres

import (
	"context"
	"fmt"
)

// Schema DDL is applied at boot rather than via a migration tool: the partial
// unique index on execution_queue is a correctness invariant and must exist
// before the first poll. Statements are idempotent.

var promptsSchema = []string{
	`CREATE TABLE IF NOT EXISTS prompts (
		id BIGSERIAL PRIMARY KEY,
		text TEXT NOT NULL,
		embedding REAL[] NOT NULL,
		topic_id BIGINT,
		user_id CHAR(36)
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS countries (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS languages (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS country_languages (
		country_id BIGINT NOT NULL REFERENCES countries(id),
		language_id BIGINT NOT NULL REFERENCES languages(id),
		ord INT NOT NULL DEFAULT 0,
		PRIMARY KEY (country_id, language_id)
	)`,
	`CREATE TABLE IF NOT EXISTS prompt_groups (
		id BIGSERIAL PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		title TEXT NOT NULL,
		topic_id BIGINT NOT NULL,
		brand JSONB NOT NULL DEFAULT '{}'::jsonb,
		competitors JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, title)
	)`,
	`CREATE TABLE IF NOT EXISTS prompt_group_bindings (
		group_id BIGINT NOT NULL REFERENCES prompt_groups(id) ON DELETE CASCADE,
		prompt_id BIGINT NOT NULL,
		added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (group_id, prompt_id)
	)`,
}

var usersSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		full_name TEXT,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		verification_token TEXT,
		verification_expires_at TIMESTAMPTZ,
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS credit_grants (
		id BIGSERIAL PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		source TEXT NOT NULL CHECK (source IN ('signup_bonus','payment','promo_code','referral','admin_grant')),
		original_amount DOUBLE PRECISION NOT NULL,
		remaining_amount DOUBLE PRECISION NOT NULL,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (remaining_amount >= 0 AND remaining_amount <= original_amount)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_grants_user ON credit_grants (user_id, expires_at ASC NULLS LAST, created_at ASC)`,
	`CREATE TABLE IF NOT EXISTS balance_transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('debit','credit')),
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		balance_after DOUBLE PRECISION NOT NULL,
		reason TEXT NOT NULL,
		reference_type TEXT,
		reference_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

var evalsSchema = []string{
	`CREATE TABLE IF NOT EXISTS ai_assistants (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS ai_assistant_plans (
		id BIGSERIAL PRIMARY KEY,
		assistant_id BIGINT NOT NULL REFERENCES ai_assistants(id),
		name TEXT NOT NULL,
		UNIQUE (assistant_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS execution_queue (
		id BIGSERIAL PRIMARY KEY,
		prompt_id BIGINT NOT NULL,
		requested_by CHAR(36) NOT NULL,
		request_batch_id TEXT NOT NULL,
		requested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		status TEXT NOT NULL CHECK (status IN ('pending','in_progress','completed','failed','cancelled')),
		claimed_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		evaluation_id BIGINT,
		failure_reason TEXT
	)`,
	// The single invariant preventing duplicate scheduling. Must live in the
	// database, not the application.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_execution_queue_active_prompt
		ON execution_queue (prompt_id) WHERE status IN ('pending','in_progress')`,
	`CREATE INDEX IF NOT EXISTS idx_execution_queue_pending ON execution_queue (requested_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS prompt_evaluations (
		id BIGSERIAL PRIMARY KEY,
		prompt_id BIGINT NOT NULL,
		assistant_plan_id BIGINT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('in_progress','completed','failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		claimed_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		answer JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompt_evaluations_prompt ON prompt_evaluations (prompt_id, status)`,
	`CREATE TABLE IF NOT EXISTS consumed_evaluations (
		id BIGSERIAL PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		evaluation_id BIGINT NOT NULL,
		amount_charged DOUBLE PRECISION NOT NULL,
		consumed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, evaluation_id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_reports (
		id BIGSERIAL PRIMARY KEY,
		group_id BIGINT NOT NULL,
		user_id CHAR(36) NOT NULL,
		title TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		total_prompts INT NOT NULL,
		prompts_with_data INT NOT NULL,
		prompts_awaiting INT NOT NULL,
		total_evaluations_loaded INT NOT NULL,
		total_cost DOUBLE PRECISION NOT NULL,
		brand_snapshot JSONB NOT NULL DEFAULT '{}'::jsonb,
		competitors_snapshot JSONB NOT NULL DEFAULT '[]'::jsonb
	)`,
	`CREATE TABLE IF NOT EXISTS group_report_items (
		id BIGSERIAL PRIMARY KEY,
		report_id BIGINT NOT NULL REFERENCES group_reports(id) ON DELETE CASCADE,
		prompt_id BIGINT NOT NULL,
		evaluation_id BIGINT,
		status TEXT NOT NULL CHECK (status IN ('included','awaiting','skipped')),
		is_fresh BOOLEAN NOT NULL DEFAULT FALSE,
		amount_charged DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS brightdata_batches (
		batch_id TEXT PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		prompt_ids BIGINT[] NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending','completed','partial','failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
}

// EnsureSchema applies the DDL for one logical store.
func EnsureSchema(ctx context.Context, pool PgxPool, stmts []string) error {
	for _, q := range stmts {
		if _, err := pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("op=schema.ensure: %w", err)
		}
	}
	return nil
}

// PromptsSchema, UsersSchema and EvalsSchema expose the per-store DDL.
func PromptsSchema() []string { return promptsSchema }
func UsersSchema() []string   { return usersSchema }
func EvalsSchema() []string   { return evalsSchema }
