// Package data contains Postgres-backed repositories.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/charon-sso/charon/internal/core"
	"github.com/charon-sso/charon/internal/data/pgxutil"
	"github.com/charon-sso/charon/internal/domain/services"
)

var (
	// ErrServiceNotFound is returned when a registered service id is unknown.
	ErrServiceNotFound = errors.New("registered service not found")
	// ErrServiceNameExists is returned on a duplicate service name.
	ErrServiceNameExists = errors.New("registered service name already exists")
)

// ServiceRegistryRepo persists registered services in Postgres. Match
// evaluation happens in process because wildcard, regex and eTLD+1 kinds
// cannot be expressed as an index lookup.
type ServiceRegistryRepo struct {
	DB    *sql.DB
	clock core.Clock
}

var _ core.ServiceRegistry = (*ServiceRegistryRepo)(nil)

// NewServiceRegistryRepo creates a ServiceRegistryRepo.
func NewServiceRegistryRepo(db *sql.DB) *ServiceRegistryRepo {
	return &ServiceRegistryRepo{DB: db, clock: core.SystemClock{}}
}

// NewServiceRegistryRepoWithClock creates a repo with a custom time source.
func NewServiceRegistryRepoWithClock(db *sql.DB, clock core.Clock) *ServiceRegistryRepo {
	return &ServiceRegistryRepo{DB: db, clock: clock}
}

// row mirrors the registered_services table; policy documents are JSONB.
type row struct {
	ID                 int64
	Name               string
	ServiceID          string
	MatchKind          string
	Enabled            bool
	SSOEnabled         bool
	RequiredHandlers   []byte
	RequiredAttributes []byte
	Proxy              []byte
	MFA                []byte
	AttributeRelease   []byte
	CreatedAt          sql.NullTime
	UpdatedAt          sql.NullTime
}

const selectColumns = `
	id, name, service_id, match_kind, enabled, sso_enabled,
	required_handlers, required_attributes, proxy, mfa, attribute_release,
	created_at, updated_at`

// FindServiceBy implements core.ServiceRegistry. Registrations are evaluated
// in ascending id order; the first enabled-or-not match wins. Absence is
// (nil, nil).
func (r *ServiceRegistryRepo) FindServiceBy(ctx context.Context, svc services.Service) (*services.RegisteredService, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rs := range all {
		if rs.MatchesService(svc.ID) {
			return rs, nil
		}
	}
	return nil, nil
}

// Save implements core.ServiceRegistry. A zero id inserts; a non-zero id
// updates in place.
func (r *ServiceRegistryRepo) Save(ctx context.Context, rs *services.RegisteredService) (*services.RegisteredService, error) {
	if rs == nil {
		return nil, errors.New("registered service is required")
	}
	if err := rs.Release.Validate(); err != nil {
		return nil, err
	}
	in, err := toRow(rs)
	if err != nil {
		return nil, err
	}

	var out row
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var rows pgx.Rows
		var qerr error
		now := r.clock.Now().UTC()
		if rs.ID == 0 {
			rows, qerr = conn.Query(ctx, `
				INSERT INTO registered_services (
					name, service_id, match_kind, enabled, sso_enabled,
					required_handlers, required_attributes, proxy, mfa, attribute_release,
					created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
				RETURNING`+selectColumns,
				in.Name, in.ServiceID, in.MatchKind, in.Enabled, in.SSOEnabled,
				in.RequiredHandlers, in.RequiredAttributes, in.Proxy, in.MFA, in.AttributeRelease,
				now,
			)
		} else {
			rows, qerr = conn.Query(ctx, `
				UPDATE registered_services SET
					name = $2, service_id = $3, match_kind = $4, enabled = $5,
					sso_enabled = $6, required_handlers = $7, required_attributes = $8,
					proxy = $9, mfa = $10, attribute_release = $11, updated_at = $12
				WHERE id = $1
				RETURNING`+selectColumns,
				rs.ID,
				in.Name, in.ServiceID, in.MatchKind, in.Enabled, in.SSOEnabled,
				in.RequiredHandlers, in.RequiredAttributes, in.Proxy, in.MFA, in.AttributeRelease,
				now,
			)
		}
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		out, qerr = pgx.CollectOneRow(rows, pgx.RowToStructByPos[row])
		return qerr
	})
	if err != nil {
		return nil, r.mapWriteErr(err)
	}
	return fromRow(out)
}

// Delete implements core.ServiceRegistry.
func (r *ServiceRegistryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM registered_services WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete registered service: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List implements core.ServiceRegistry.
func (r *ServiceRegistryRepo) List(ctx context.Context) ([]*services.RegisteredService, error) {
	var stored []row
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT`+selectColumns+` FROM registered_services ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		stored, err = pgx.CollectRows(rows, pgx.RowToStructByPos[row])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list registered services: %w", err)
	}

	out := make([]*services.RegisteredService, 0, len(stored))
	for _, s := range stored {
		rs, err := fromRow(s)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func (r *ServiceRegistryRepo) mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrServiceNameExists
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrServiceNotFound
	}
	return fmt.Errorf("save registered service: %w", err)
}

func toRow(rs *services.RegisteredService) (row, error) {
	out := row{
		Name:       rs.Name,
		ServiceID:  rs.ServiceID,
		MatchKind:  string(rs.MatchKind),
		Enabled:    rs.Enabled,
		SSOEnabled: rs.SSOEnabled,
	}
	var err error
	if out.RequiredHandlers, err = json.Marshal(rs.RequiredHandlers); err != nil {
		return row{}, err
	}
	if out.RequiredAttributes, err = json.Marshal(rs.RequiredAttributes); err != nil {
		return row{}, err
	}
	if out.Proxy, err = json.Marshal(rs.Proxy); err != nil {
		return row{}, err
	}
	if out.MFA, err = json.Marshal(rs.MFA); err != nil {
		return row{}, err
	}
	if out.AttributeRelease, err = json.Marshal(rs.Release); err != nil {
		return row{}, err
	}
	return out, nil
}

func fromRow(in row) (*services.RegisteredService, error) {
	rs := &services.RegisteredService{
		ID:         in.ID,
		Name:       in.Name,
		ServiceID:  in.ServiceID,
		MatchKind:  services.MatchKind(in.MatchKind),
		Enabled:    in.Enabled,
		SSOEnabled: in.SSOEnabled,
	}
	for _, field := range []struct {
		data []byte
		dst  any
	}{
		{in.RequiredHandlers, &rs.RequiredHandlers},
		{in.RequiredAttributes, &rs.RequiredAttributes},
		{in.Proxy, &rs.Proxy},
		{in.MFA, &rs.MFA},
		{in.AttributeRelease, &rs.Release},
	} {
		if len(field.data) == 0 {
			continue
		}
		if err := json.Unmarshal(field.data, field.dst); err != nil {
			return nil, fmt.Errorf("decode registered service %d: %w", in.ID, err)
		}
	}
	if in.CreatedAt.Valid {
		rs.CreatedAt = in.CreatedAt.Time
	}
	if in.UpdatedAt.Valid {
		rs.UpdatedAt = in.UpdatedAt.Time
	}
	return rs, nil
}
