package data

import (
	"context"
	"database/sql"
	"fmt"
)

const registeredServicesSchema = `
CREATE TABLE IF NOT EXISTS registered_services (
	id                  BIGSERIAL PRIMARY KEY,
	name                TEXT NOT NULL UNIQUE,
	service_id          TEXT NOT NULL,
	match_kind          TEXT NOT NULL DEFAULT 'exact',
	enabled             BOOLEAN NOT NULL DEFAULT TRUE,
	sso_enabled         BOOLEAN NOT NULL DEFAULT TRUE,
	required_handlers   JSONB,
	required_attributes JSONB,
	proxy               JSONB,
	mfa                 JSONB,
	attribute_release   JSONB,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS registered_services_service_id_idx
	ON registered_services (service_id);
`

// EnsureSchema creates the tables this package depends on. It is idempotent
// and safe to run at every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, registeredServicesSchema); err != nil {
		return fmt.Errorf("ensure registered_services schema: %w", err)
	}
	return nil
}
