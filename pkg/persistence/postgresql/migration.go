package postgresql

// migrations returns the versioned schema statements. Never edit an applied
// version; add a new one.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				validation_mode TEXT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				components JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				created_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				workflow_name TEXT NOT NULL DEFAULT '',
				kind TEXT NOT NULL,
				status TEXT NOT NULL,
				validation_enabled BOOLEAN NOT NULL DEFAULT FALSE,
				stop_on_failure BOOLEAN NOT NULL DEFAULT FALSE,
				run_range JSONB,
				cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
				log JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_runs_workflow_id
				ON runs (workflow_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS component_statuses (
				id TEXT PRIMARY KEY,
				run_id TEXT NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
				component_id TEXT NOT NULL,
				component_name TEXT NOT NULL DEFAULT '',
				component_type TEXT NOT NULL,
				execution_order INTEGER NOT NULL,
				state TEXT NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				last_signal TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				UNIQUE (run_id, component_id)
			);

			CREATE TABLE IF NOT EXISTS schedules (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				cron_expression TEXT NOT NULL,
				validation_enabled BOOLEAN NOT NULL DEFAULT FALSE,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_schedules_next_due_at
				ON schedules (next_due_at) WHERE active;
		`,
	}
}
