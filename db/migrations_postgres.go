package db

// PostgreSQL migrations for the curator schema

var postgresMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_items_table",
		Up: `
			CREATE TABLE IF NOT EXISTS items (
				id TEXT PRIMARY KEY,
				source TEXT NOT NULL DEFAULT 'manual',
				url TEXT NOT NULL,
				url_hash TEXT NOT NULL UNIQUE,
				title TEXT NOT NULL DEFAULT '',
				summary_short TEXT NOT NULL DEFAULT '',
				summary_long TEXT NOT NULL DEFAULT '',
				tags TEXT[] NOT NULL DEFAULT '{}',
				personal_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				org_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				novelty DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				base_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
				status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'muted', 'archived')),
				pin SMALLINT NOT NULL DEFAULT 0 CHECK (pin IN (0, 1)),
				content_path TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				processed_at TIMESTAMPTZ
			);
		`,
		Down: `
			DROP TABLE IF EXISTS items;
		`,
	},
	{
		Version: 2,
		Name:    "add_item_view_indexes",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_items_browse ON items(status, pin DESC, base_score DESC, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_items_org ON items(status, org_score DESC, created_at DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_items_org;
			DROP INDEX IF EXISTS idx_items_created_at;
			DROP INDEX IF EXISTS idx_items_browse;
		`,
	},
	{
		Version: 3,
		Name:    "create_curation_profile_tables",
		Up: `
			CREATE TABLE IF NOT EXISTS user_profile (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				interests TEXT NOT NULL DEFAULT '[]',
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS org_themes (
				theme TEXT PRIMARY KEY,
				weight DOUBLE PRECISION NOT NULL DEFAULT 1
			);
			CREATE TABLE IF NOT EXISTS tag_vocabulary (
				tag TEXT PRIMARY KEY,
				usage_count INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_org_themes_weight ON org_themes(weight DESC);
			CREATE INDEX IF NOT EXISTS idx_tag_vocabulary_usage ON tag_vocabulary(usage_count DESC);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_tag_vocabulary_usage;
			DROP INDEX IF EXISTS idx_org_themes_weight;
			DROP TABLE IF EXISTS tag_vocabulary;
			DROP TABLE IF EXISTS org_themes;
			DROP TABLE IF EXISTS user_profile;
		`,
	},
}
