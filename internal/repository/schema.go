package repository

// Schema is the DDL for the chatflow service tables. It is applied by the
// seed CLI's migrate command and by the integration tests. Every statement is
// idempotent so re-running a migration is safe.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workspaces (
	id UUID PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workspace_members (
	profile_id UUID NOT NULL REFERENCES profiles(id),
	workspace_id UUID NOT NULL REFERENCES workspaces(id),
	role TEXT NOT NULL DEFAULT 'member',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (profile_id, workspace_id)
);

CREATE TABLE IF NOT EXISTS chatflows (
	id UUID PRIMARY KEY,
	workspace_id UUID NOT NULL REFERENCES workspaces(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	schema JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'DRAFT',
	share_url TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS chatflows_workspace_created_idx
	ON chatflows (workspace_id, created_at DESC);

CREATE TABLE IF NOT EXISTS submissions (
	id UUID PRIMARY KEY,
	chatflow_id UUID NOT NULL REFERENCES chatflows(id),
	data JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS submissions_chatflow_idx ON submissions (chatflow_id);

CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY,
	actor_id UUID NOT NULL,
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
