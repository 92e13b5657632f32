// Package sqlstore keeps objects in a single SQL table. It serves deployments
// that already run PostgreSQL (pgx or lib/pq driver) and local runs that want a file on
// disk (SQLite via modernc.org/sqlite). Schema migrations are embedded and
// applied with goose on start.
package sqlstore

import (
	"context"
	"crypto/md5"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/patric-chuzhbe/thesiscomments/internal/objstore"
)

//go:embed migrations
var migrations embed.FS

// SQLStore is an objstore.Store over one "objects" table.
type SQLStore struct {
	database          *sql.DB
	dialect           dialect
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
	Driver     string
}

// Supported PostgreSQL database/sql driver names.
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

// InitOption customizes store initialization.
type InitOption func(*initOptions)

// WithDBPreReset rolls every migration back before applying them, wiping the table.
func WithDBPreReset(dbPreReset bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = dbPreReset
	}
}

// WithDriver overrides the dialect's database/sql driver, e.g. DriverPq.
func WithDriver(driver string) InitOption {
	return func(options *initOptions) {
		options.Driver = driver
	}
}

// NewPostgres opens a PostgreSQL-backed store.
func NewPostgres(ctx context.Context, databaseDSN string, connectionTimeout time.Duration, optionsProto ...InitOption) (*SQLStore, error) {
	return open(ctx, postgresDialect, databaseDSN, connectionTimeout, optionsProto...)
}

// NewSQLite opens a SQLite-backed store at path.
func NewSQLite(ctx context.Context, path string, optionsProto ...InitOption) (*SQLStore, error) {
	return open(ctx, sqliteDialect, path, 0, optionsProto...)
}

func open(
	ctx context.Context,
	d dialect,
	dsn string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*SQLStore, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.Driver != "" {
		d.driver = options.Driver
	}

	database, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}
	if d.singleConn {
		database.SetMaxOpenConns(1)
	}

	result := &SQLStore{
		database:          database,
		dialect:           d,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in sqlstore.open(): error while `result.Ping()` calling: %w", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(d.goose); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in sqlstore.open(): error while `goose.SetDialect()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := goose.ResetContext(ctx, database, d.migrationsDir); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("in sqlstore.open(): error while `goose.ResetContext()` calling: %w", err)
		}
	}

	if err := goose.UpContext(ctx, database, d.migrationsDir); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in sqlstore.open(): error while `goose.UpContext()` calling: %w", err)
	}

	return result, nil
}

func (s *SQLStore) Head(ctx context.Context, key string) (objstore.ObjectInfo, error) {
	row := s.database.QueryRowContext(
		ctx,
		s.dialect.rebind(`SELECT etag, length(body), updated_at FROM objects WHERE key = ?`),
		key,
	)

	info := objstore.ObjectInfo{Key: key}
	var updatedAt int64
	if err := row.Scan(&info.ETag, &info.Size, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return objstore.ObjectInfo{}, objstore.ErrNotFound
		}
		return objstore.ObjectInfo{}, err
	}
	info.LastModified = time.UnixMilli(updatedAt).UTC()

	return info, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, objstore.ObjectInfo, error) {
	row := s.database.QueryRowContext(
		ctx,
		s.dialect.rebind(`SELECT body, etag, updated_at FROM objects WHERE key = ?`),
		key,
	)

	info := objstore.ObjectInfo{Key: key}
	var body []byte
	var updatedAt int64
	if err := row.Scan(&body, &info.ETag, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, objstore.ObjectInfo{}, objstore.ErrNotFound
		}
		return nil, objstore.ObjectInfo{}, err
	}
	info.Size = int64(len(body))
	info.LastModified = time.UnixMilli(updatedAt).UTC()

	return body, info, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, body []byte, opts objstore.PutOptions) (objstore.ObjectInfo, error) {
	sum := md5.Sum(body)
	info := objstore.ObjectInfo{
		Key:          key,
		ETag:         hex.EncodeToString(sum[:]),
		Size:         int64(len(body)),
		LastModified: time.Now().UTC().Truncate(time.Millisecond),
	}
	updatedAt := info.LastModified.UnixMilli()

	var (
		result sql.Result
		err    error
	)
	switch {
	case opts.IfNoneMatch:
		result, err = s.database.ExecContext(
			ctx,
			s.dialect.rebind(`
				INSERT INTO objects (key, body, etag, updated_at)
					VALUES (?, ?, ?, ?)
					ON CONFLICT (key) DO NOTHING
			`),
			key, body, info.ETag, updatedAt,
		)
	case opts.IfMatch != "":
		result, err = s.database.ExecContext(
			ctx,
			s.dialect.rebind(`
				UPDATE objects
					SET body = ?, etag = ?, updated_at = ?
					WHERE key = ? AND etag = ?
			`),
			body, info.ETag, updatedAt, key, opts.IfMatch,
		)
	default:
		result, err = s.database.ExecContext(
			ctx,
			s.dialect.rebind(`
				INSERT INTO objects (key, body, etag, updated_at)
					VALUES (?, ?, ?, ?)
					ON CONFLICT (key) DO UPDATE
					SET
						body = EXCLUDED.body,
						etag = EXCLUDED.etag,
						updated_at = EXCLUDED.updated_at
			`),
			key, body, info.ETag, updatedAt,
		)
	}
	if err != nil {
		return objstore.ObjectInfo{}, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return objstore.ObjectInfo{}, err
	}
	if affected == 0 {
		return objstore.ObjectInfo{}, objstore.ErrPreconditionFailed
	}

	return info, nil
}

func (s *SQLStore) List(ctx context.Context, opts objstore.ListOptions) (objstore.ListPage, error) {
	limit := math.MaxInt32
	if opts.Limit > 0 {
		// One extra row tells whether another page follows.
		limit = opts.Limit + 1
	}

	rows, err := s.database.QueryContext(
		ctx,
		s.dialect.rebind(`
			SELECT key, etag, length(body), updated_at
				FROM objects
				WHERE substr(key, 1, ?) = ? AND key > ?
				ORDER BY key
				LIMIT ?
		`),
		utf8.RuneCountInString(opts.Prefix), opts.Prefix, opts.Cursor, limit,
	)
	if err != nil {
		return objstore.ListPage{}, err
	}
	defer rows.Close()

	page := objstore.ListPage{}
	for rows.Next() {
		var info objstore.ObjectInfo
		var updatedAt int64
		if err := rows.Scan(&info.Key, &info.ETag, &info.Size, &updatedAt); err != nil {
			return objstore.ListPage{}, err
		}
		info.LastModified = time.UnixMilli(updatedAt).UTC()
		page.Objects = append(page.Objects, info)
	}
	if err := rows.Err(); err != nil {
		return objstore.ListPage{}, err
	}

	if opts.Limit > 0 && len(page.Objects) > opts.Limit {
		page.Objects = page.Objects[:opts.Limit]
		page.Truncated = true
		page.Cursor = page.Objects[len(page.Objects)-1].Key
	}

	return page, nil
}

// Ping checks the connection, bounded by the configured connection timeout.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s.connectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.connectionTimeout)
		defer cancel()
	}
	return s.database.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.database.Close()
}
