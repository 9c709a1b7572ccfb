package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Postgres is a Ledger backed by a single ordered key-value table in
// PostgreSQL. BYTEA keys compare bytewise, so ORDER BY key yields the same
// iteration order as the LevelDB backend.
type Postgres struct {
	db *sql.DB
}

// PostgresConfig holds the connection parameters for the Postgres ledger
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// OpenPostgres connects to PostgreSQL and ensures the ledger table exists
func OpenPostgres(cfg *PostgresConfig) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing database handle; the caller owns schema setup
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) ensureSchema() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS ledger_kv (
		key   BYTEA PRIMARY KEY,
		value BYTEA NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// Get returns the value stored at key, or (nil, nil) if absent
func (p *Postgres) Get(key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(`SELECT value FROM ledger_kv WHERE key = $1`, []byte(key)).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %q: %w", key, err)
	}
	return value, nil
}

// Put stores value at key, overwriting any prior entry
func (p *Postgres) Put(key string, value []byte) error {
	_, err := p.db.Exec(
		`INSERT INTO ledger_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		[]byte(key), value,
	)
	if err != nil {
		return fmt.Errorf("postgres put %q: %w", key, err)
	}
	return nil
}

// ScanPrefix iterates all entries whose key starts with prefix, in key order
func (p *Postgres) ScanPrefix(prefix string) Iterator {
	var (
		rows *sql.Rows
		err  error
	)
	upper := keyUpperBound(prefix)
	if upper == nil {
		rows, err = p.db.Query(
			`SELECT key, value FROM ledger_kv WHERE key >= $1 ORDER BY key`,
			[]byte(prefix),
		)
	} else {
		rows, err = p.db.Query(
			`SELECT key, value FROM ledger_kv WHERE key >= $1 AND key < $2 ORDER BY key`,
			[]byte(prefix), upper,
		)
	}
	if err != nil {
		return &postgresIterator{err: fmt.Errorf("postgres scan %q: %w", prefix, err)}
	}
	return &postgresIterator{rows: rows}
}

// Close closes the underlying database handle
func (p *Postgres) Close() error {
	return p.db.Close()
}

type postgresIterator struct {
	rows  *sql.Rows
	key   []byte
	value []byte
	err   error
}

func (it *postgresIterator) Next() bool {
	if it.err != nil || it.rows == nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}
	if err := it.rows.Scan(&it.key, &it.value); err != nil {
		it.err = err
		return false
	}
	return true
}

func (it *postgresIterator) Key() string {
	return string(it.key)
}

func (it *postgresIterator) Value() []byte {
	return it.value
}

func (it *postgresIterator) Err() error {
	return it.err
}

func (it *postgresIterator) Close() error {
	if it.rows == nil {
		return it.err
	}
	return it.rows.Close()
}
