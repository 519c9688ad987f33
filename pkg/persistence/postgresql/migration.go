package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused')),
				trigger_type VARCHAR(100) NOT NULL,
				trigger_config JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger_status ON workflows(trigger_type, status);

			CREATE TABLE workflow_steps (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				type VARCHAR(50) NOT NULL CHECK (type IN ('trigger', 'action', 'condition', 'delay')),
				action_type VARCHAR(100),
				name VARCHAR(255) NOT NULL DEFAULT '',
				config JSONB NOT NULL DEFAULT '{}',
				position_x INT NOT NULL DEFAULT 0,
				position_y INT NOT NULL DEFAULT 0,
				sort_order INT NOT NULL DEFAULT 0,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE TABLE workflow_connections (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_step_id VARCHAR(255) NOT NULL,
				target_step_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(50),
				sort_order INT NOT NULL DEFAULT 0,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_connections_source ON workflow_connections(workflow_id, source_step_id);
		`,
		2: `
			CREATE TABLE enrollments (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				contact_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'waiting', 'completed', 'failed', 'exited')),
				current_step_id VARCHAR(255),
				context JSONB NOT NULL DEFAULT '{}',
				enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				exit_reason TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- At most one in-flight enrollment per (workflow, contact)
			CREATE UNIQUE INDEX idx_enrollments_in_flight ON enrollments(workflow_id, contact_id)
				WHERE status IN ('active', 'waiting');
			CREATE INDEX idx_enrollments_contact ON enrollments(contact_id);

			CREATE TABLE step_executions (
				id VARCHAR(255) PRIMARY KEY,
				enrollment_id VARCHAR(255) NOT NULL REFERENCES enrollments(id) ON DELETE CASCADE,
				step_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('processing', 'completed', 'failed')),
				result JSONB,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_step_executions_enrollment ON step_executions(enrollment_id, started_at);

			CREATE TABLE jobs (
				id VARCHAR(255) PRIMARY KEY,
				enrollment_id VARCHAR(255) NOT NULL,
				step_id VARCHAR(255) NOT NULL,
				not_before TIMESTAMP WITH TIME ZONE NOT NULL,
				attempts INT NOT NULL DEFAULT 0,
				locked_until TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_jobs_not_before ON jobs(not_before);
			CREATE INDEX idx_jobs_enrollment ON jobs(enrollment_id);
		`,
		3: `
			CREATE TABLE contacts (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(50) NOT NULL DEFAULT '',
				status VARCHAR(100) NOT NULL DEFAULT '',
				notes TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				city VARCHAR(255) NOT NULL DEFAULT '',
				state VARCHAR(255) NOT NULL DEFAULT '',
				postal_code VARCHAR(50) NOT NULL DEFAULT '',
				country VARCHAR(100) NOT NULL DEFAULT '',
				lead_score INT NOT NULL DEFAULT 0,
				custom_fields JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE tags (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_tags_name ON tags(LOWER(name));

			CREATE TABLE contact_tags (
				contact_id VARCHAR(255) NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				tag_id VARCHAR(255) NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				source VARCHAR(50) NOT NULL DEFAULT 'manual',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (contact_id, tag_id)
			);

			CREATE TABLE score_history (
				id VARCHAR(255) PRIMARY KEY,
				contact_id VARCHAR(255) NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				points INT NOT NULL,
				previous_score INT NOT NULL,
				new_score INT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				source VARCHAR(50) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_score_history_contact ON score_history(contact_id, created_at);

			CREATE TABLE message_templates (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				channel VARCHAR(50) NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL
			);

			CREATE TABLE users (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				role VARCHAR(50) NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_users_role ON users(role);

			CREATE TABLE notifications (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				data JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_notifications_user ON notifications(user_id, created_at);
		`,
	}
}
