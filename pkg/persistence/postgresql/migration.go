package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workspaces (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				sender_email VARCHAR(255) NOT NULL DEFAULT '',
				outbound_phone VARCHAR(50) NOT NULL DEFAULT '',
				booking_link TEXT NOT NULL DEFAULT '',
				review_link TEXT NOT NULL DEFAULT '',
				brand_tone VARCHAR(255) NOT NULL DEFAULT '',
				industry VARCHAR(255) NOT NULL DEFAULT '',
				services JSONB NOT NULL DEFAULT '[]',
				unique_selling_points JSONB NOT NULL DEFAULT '[]',
				special_instructions TEXT NOT NULL DEFAULT '',
				ai_monthly_token_limit BIGINT NOT NULL DEFAULT 0
			);

			CREATE TABLE contacts (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				first_name VARCHAR(255) NOT NULL DEFAULT '',
				last_name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(50) NOT NULL DEFAULT '',
				stage VARCHAR(100) NOT NULL DEFAULT 'new',
				source VARCHAR(100) NOT NULL DEFAULT '',
				opted_out BOOLEAN NOT NULL DEFAULT FALSE,
				assigned_to_id VARCHAR(255) NOT NULL DEFAULT '',
				last_contacted_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_contacts_workspace ON contacts(workspace_id);
			CREATE INDEX idx_contacts_stage ON contacts(workspace_id, stage);

			CREATE TABLE categories (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				name VARCHAR(255) NOT NULL,
				UNIQUE (workspace_id, name)
			);

			CREATE TABLE contact_categories (
				contact_id UUID NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				category_id UUID NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
				PRIMARY KEY (contact_id, category_id)
			);

			CREATE TABLE activities (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				contact_id UUID NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
				kind VARCHAR(50) NOT NULL,
				body TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_activities_contact ON activities(contact_id, created_at);
		`,
		2: `
			CREATE TABLE task_columns (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				name VARCHAR(255) NOT NULL,
				position INT NOT NULL DEFAULT 0,
				is_default BOOLEAN NOT NULL DEFAULT FALSE
			);

			-- At most one default column per workspace; concurrent first-runs
			-- racing through the serializable find-or-create still cannot
			-- both commit a default.
			CREATE UNIQUE INDEX idx_task_columns_default
				ON task_columns(workspace_id) WHERE is_default;

			CREATE TABLE tasks (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				column_id UUID NOT NULL REFERENCES task_columns(id),
				number INT NOT NULL,
				title VARCHAR(500) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				contact_id UUID REFERENCES contacts(id),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_tasks_workspace ON tasks(workspace_id);
			CREATE INDEX idx_tasks_column ON tasks(column_id);
		`,
		3: `
			CREATE TABLE email_sends (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				contact_id UUID NOT NULL REFERENCES contacts(id),
				from_address VARCHAR(255) NOT NULL,
				to_address VARCHAR(255) NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL,
				sequence_id UUID,
				sent_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_email_sends_contact ON email_sends(contact_id, sent_at);

			CREATE TABLE sms_messages (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				contact_id UUID NOT NULL REFERENCES contacts(id),
				direction VARCHAR(10) NOT NULL CHECK (direction IN ('outbound', 'inbound')),
				from_number VARCHAR(50) NOT NULL,
				to_number VARCHAR(50) NOT NULL,
				body TEXT NOT NULL,
				sequence_id UUID,
				sent_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sms_messages_contact ON sms_messages(contact_id, sent_at);

			CREATE TABLE conversations (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				contact_id UUID NOT NULL REFERENCES contacts(id),
				last_message TEXT NOT NULL DEFAULT '',
				last_message_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workspace_id, contact_id)
			);
		`,
		4: `
			CREATE TABLE sequences (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				name VARCHAR(255) NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('draft', 'active', 'paused', 'archived')),
				audience_type VARCHAR(20) NOT NULL,
				audience_filter_value VARCHAR(255) NOT NULL DEFAULT '',
				frequency_cap_days INT NOT NULL DEFAULT 0,
				trigger_type VARCHAR(30) NOT NULL,
				trigger_value VARCHAR(255) NOT NULL DEFAULT '',
				steps JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_sequences_workspace ON sequences(workspace_id);
			CREATE INDEX idx_sequences_trigger ON sequences(workspace_id, trigger_type) WHERE status = 'active';

			CREATE TABLE enrollments (
				id UUID PRIMARY KEY,
				sequence_id UUID NOT NULL REFERENCES sequences(id),
				contact_id UUID NOT NULL REFERENCES contacts(id),
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				status VARCHAR(20) NOT NULL CHECK (status IN ('active', 'completed', 'stopped', 'opted_out')),
				current_step INT NOT NULL DEFAULT 0,
				next_step_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			-- The authoritative dedupe: the in-code enrollment guard is
			-- advisory, this index is the hard defense against concurrent
			-- duplicate enrollment.
			CREATE UNIQUE INDEX idx_enrollments_active_pair
				ON enrollments(sequence_id, contact_id) WHERE status = 'active';

			CREATE INDEX idx_enrollments_due
				ON enrollments(next_step_at) WHERE status = 'active';
		`,
		5: `
			CREATE TABLE ai_usage (
				id UUID PRIMARY KEY,
				workspace_id UUID NOT NULL REFERENCES workspaces(id),
				provider VARCHAR(50) NOT NULL,
				model VARCHAR(100) NOT NULL,
				input_tokens INT NOT NULL,
				output_tokens INT NOT NULL,
				estimated_cost NUMERIC(12, 6) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_ai_usage_workspace ON ai_usage(workspace_id, created_at);
		`,
	}
}
