package sqlite

const schemaVersion = 1

const schema = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE users (
	user_id    TEXT PRIMARY KEY,
	full_name  TEXT NOT NULL,
	email      TEXT NOT NULL,
	is_blocked INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE subscriptions (
	subscription_id TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL UNIQUE REFERENCES users(user_id),
	status          TEXT NOT NULL,
	tier            TEXT NOT NULL,
	monthly_quota   INTEGER NOT NULL,
	started_at      TEXT NOT NULL
);

CREATE TABLE experiences (
	experience_id   TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	when_at         TEXT NOT NULL,
	slots_available INTEGER NOT NULL CHECK (slots_available >= 0),
	is_premium      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE reservations (
	reservation_id TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	experience_id  TEXT NOT NULL,
	status         TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX idx_reservations_user ON reservations(user_id, status, created_at);

CREATE TABLE knowledge (
	article_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_knowledge_account ON knowledge(account_id);

CREATE TABLE tickets (
	ticket_id  TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	channel    TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE ticket_messages (
	message_id TEXT PRIMARY KEY,
	ticket_id  TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX idx_ticket_messages_ticket ON ticket_messages(ticket_id, created_at);
`
