package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions. Nodes and edges are stored as JSONB
			-- documents: the engine always loads a graph whole.
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_name ON workflows(name);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			-- Execution history.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				input JSONB,
				output JSONB,
				error_message TEXT,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_started_at ON executions(started_at);

			-- Per-node results within an execution.
			CREATE TABLE node_executions (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				node_type VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				input_data JSONB,
				output_data JSONB,
				error_message TEXT,
				duration_ms BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_node_executions_execution_id ON node_executions(execution_id);
			CREATE INDEX idx_node_executions_node_id ON node_executions(node_id);
		`,
		2: `
			-- Prompt templates and playground conversations.
			CREATE TABLE prompts (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				version VARCHAR(50) NOT NULL DEFAULT '1.0.0',
				content TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				author VARCHAR(255),
				tags JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_prompts_name ON prompts(name);
			CREATE INDEX idx_prompts_created_at ON prompts(created_at);

			CREATE TABLE conversations (
				id VARCHAR(255) PRIMARY KEY,
				session_id VARCHAR(255) NOT NULL UNIQUE,
				model_name VARCHAR(255) NOT NULL,
				model_provider VARCHAR(255) NOT NULL,
				system_prompt TEXT,
				messages JSONB NOT NULL DEFAULT '[]',
				parameters JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_conversations_session_id ON conversations(session_id);
			CREATE INDEX idx_conversations_updated_at ON conversations(updated_at);
		`,
	}
}
