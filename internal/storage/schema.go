package storage

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tenants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	plan       TEXT NOT NULL DEFAULT 'free',
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS groups (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	maint_start TEXT,
	maint_end   TEXT,
	created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_groups_tenant_id ON groups(tenant_id);

CREATE TABLE IF NOT EXISTS devices (
	id                  TEXT PRIMARY KEY,
	tenant_id           TEXT    NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	group_id            TEXT    NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	name                TEXT    NOT NULL,
	host                TEXT    NOT NULL,
	url                 TEXT    NOT NULL DEFAULT '',
	port                INTEGER NOT NULL DEFAULT 0,
	check_interval_secs INTEGER NOT NULL DEFAULT 300,
	latency_warn_ms     INTEGER NOT NULL DEFAULT 0,
	status              TEXT    NOT NULL DEFAULT 'unknown',
	packet_loss         INTEGER NOT NULL DEFAULT 0,
	last_check_at       TEXT,
	maint_start         TEXT,
	maint_end           TEXT,
	created_at          TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at          TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_devices_group_id ON devices(group_id);
CREATE INDEX IF NOT EXISTS idx_devices_last_check ON devices(last_check_at);

CREATE TABLE IF NOT EXISTS history_samples (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id   TEXT    NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
	status      TEXT    NOT NULL,
	latency_ms  INTEGER,
	packet_loss INTEGER NOT NULL DEFAULT 0,
	detail      TEXT    NOT NULL DEFAULT '{}',
	created_at  TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_history_device_id ON history_samples(device_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_history_created_at ON history_samples(created_at);

CREATE TABLE IF NOT EXISTS alert_configs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id        TEXT    NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	channel          TEXT    NOT NULL,
	enabled          INTEGER NOT NULL DEFAULT 0,
	recipients       TEXT    NOT NULL DEFAULT '[]',
	cooldown_minutes INTEGER NOT NULL DEFAULT 5,
	updated_at       TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	UNIQUE(tenant_id, channel)
);

CREATE TABLE IF NOT EXISTS alert_events (
	tenant_id  TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	device_id  TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
	event_type TEXT NOT NULL,
	sent_at    TEXT NOT NULL,
	PRIMARY KEY (tenant_id, device_id, event_type)
);
`

type migration struct {
	version int
	sql     string
}

// migrations are applied in order to databases stamped with an older
// schema_version.
var migrations = []migration{}
