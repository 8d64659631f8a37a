package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// pgStore keeps documents in PostgreSQL, one table per collection with an
// (id uuid, doc jsonb) row shape. The jsonb column carries the whole record
// so a collection stays schema-less like the backing store it replaces.
type pgStore struct {
	db           *sql.DB
	writeTimeout time.Duration
}

// Open connects to PostgreSQL with OpenTelemetry instrumentation and ensures
// the collection tables exist.
func Open() (Store, error) {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	if host == "" || user == "" || password == "" || dbname == "" {
		return nil, fmt.Errorf("missing required database environment variables")
	}
	if port == "" {
		port = "5432"
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname,
	)

	db, err := otelsql.Open("postgres", connStr,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(dbname),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(dbname),
		),
	)
	if err != nil {
		log.Printf("Warning: failed to register database stats metrics: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	for _, name := range []string{CollectionUsers, CollectionAppointments, CollectionMeasurements, CollectionDietPlans} {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id UUID PRIMARY KEY, doc JSONB NOT NULL)`, name)
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
	}

	log.Println("✓ Connected to PostgreSQL document store (OpenTelemetry enabled)")
	return &pgStore{db: db, writeTimeout: writeTimeoutFromEnv()}, nil
}

func writeTimeoutFromEnv() time.Duration {
	if v := os.Getenv("DOCSTORE_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		log.Printf("Warning: invalid DOCSTORE_WRITE_TIMEOUT %q, using default", v)
	}
	return DefaultWriteTimeout
}

func (s *pgStore) Collection(name string) Collection {
	return &pgCollection{store: s, table: name}
}

func (s *pgStore) Close() error {
	return s.db.Close()
}

type pgCollection struct {
	store *pgStore
	table string
}

func (c *pgCollection) Add(ctx context.Context, doc Document) (string, error) {
	id := uuid.New().String()
	body, err := json.Marshal(Sanitize(doc))
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	err = withWriteTimeout(ctx, c.store.writeTimeout, func(wctx context.Context) error {
		_, execErr := c.store.db.ExecContext(wctx,
			fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2)`, c.table), id, body)
		return execErr
	})
	if err != nil {
		log.Printf("docstore: add to %s failed: %v", c.table, err)
		return "", err
	}
	return id, nil
}

func (c *pgCollection) Get(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	var body []byte
	err := c.store.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, c.table), id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return decodeDoc(id, body)
}

func (c *pgCollection) Query(ctx context.Context, q Query) ([]Document, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT id, doc FROM %s`, c.table)

	args := make([]interface{}, 0, len(q.Filters))
	for i, f := range q.Filters {
		if i == 0 {
			sb.WriteString(` WHERE `)
		} else {
			sb.WriteString(` AND `)
		}
		args = append(args, f.Value)
		fmt.Fprintf(&sb, `doc->>'%s' = $%d`, f.Field, len(args))
	}
	if q.OrderBy != nil {
		dir := "ASC"
		if q.OrderBy.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY doc->>'%s' %s`, q.OrderBy.Field, dir)
	}

	rows, err := c.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.table, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decodeDoc(id, body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", c.table, err)
	}
	return docs, nil
}

func (c *pgCollection) Set(ctx context.Context, id string, doc Document) error {
	if id == "" {
		return ErrEmptyID
	}
	body, err := json.Marshal(Sanitize(doc))
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	return withWriteTimeout(ctx, c.store.writeTimeout, func(wctx context.Context) error {
		res, execErr := c.store.db.ExecContext(wctx,
			fmt.Sprintf(`UPDATE %s SET doc = $2 WHERE id = $1`, c.table), id, body)
		if execErr != nil {
			return execErr
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (c *pgCollection) Merge(ctx context.Context, id string, partial Document) error {
	if id == "" {
		return ErrEmptyID
	}
	body, err := json.Marshal(Sanitize(partial))
	if err != nil {
		return fmt.Errorf("failed to marshal partial document: %w", err)
	}

	return withWriteTimeout(ctx, c.store.writeTimeout, func(wctx context.Context) error {
		res, execErr := c.store.db.ExecContext(wctx,
			fmt.Sprintf(`UPDATE %s SET doc = doc || $2::jsonb WHERE id = $1`, c.table), id, body)
		if execErr != nil {
			return execErr
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (c *pgCollection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return withWriteTimeout(ctx, c.store.writeTimeout, func(wctx context.Context) error {
		_, execErr := c.store.db.ExecContext(wctx,
			fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, c.table), id)
		return execErr
	})
}

// decodeDoc unmarshals a stored document and injects the row id under "id"
// so mappers see the identifier alongside the payload.
func decodeDoc(id string, body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	doc["id"] = id
	return doc, nil
}
