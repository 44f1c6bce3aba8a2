package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/securedrop/trustchain/pki"
)

// Store keeps journalists whose keys were accepted by the submission endpoint
type Store interface {
	// SaveJournalist inserts pj or replaces the row with the same signing key
	SaveJournalist(ctx context.Context, pj *pki.PublicJournalist) (*Journalist, error)
	GetJournalist(ctx context.Context, signingKey pki.VerifyingKey) (*Journalist, error)
	GetAllJournalists(ctx context.Context) ([]*Journalist, error)
	// GetStoreEngine should return Engine of the current store implementation.
	GetStoreEngine() Engine
	Close(ctx context.Context) error
}

type Engine string

const (
	SqliteStoreEngine   Engine = "sqlite"
	PostgresStoreEngine Engine = "postgres"
	MysqlStoreEngine    Engine = "mysql"

	storeEngineEnv = "TRUSTCHAIN_STORE_ENGINE"
	postgresDsnEnv = "TRUSTCHAIN_STORE_ENGINE_POSTGRES_DSN"
	mysqlDsnEnv    = "TRUSTCHAIN_STORE_ENGINE_MYSQL_DSN"
)

func getStoreEngineFromEnv() Engine {
	kind, ok := os.LookupEnv(storeEngineEnv)
	if !ok {
		return ""
	}

	value := Engine(strings.ToLower(kind))
	if value == SqliteStoreEngine || value == PostgresStoreEngine || value == MysqlStoreEngine {
		return value
	}

	return SqliteStoreEngine
}

// getStoreEngine determines the store engine to use.
// If no engine is specified, it attempts to retrieve it from the environment.
// If still not specified, it defaults to using SQLite.
func getStoreEngine(kind Engine) Engine {
	if kind == "" {
		kind = getStoreEngineFromEnv()
		if kind == "" {
			kind = SqliteStoreEngine
		}
	}
	return kind
}

// NewStore creates a new store based on the provided engine type and data directory.
// Postgres and MySQL read their DSN from the environment unless dsn is given.
func NewStore(ctx context.Context, kind Engine, dataDir string, dsn string) (Store, error) {
	kind = getStoreEngine(kind)

	switch kind {
	case SqliteStoreEngine:
		log.WithContext(ctx).Info("using SQLite store engine")
		return NewSqliteStore(ctx, dataDir)
	case PostgresStoreEngine:
		log.WithContext(ctx).Info("using Postgres store engine")
		return newPostgresStore(ctx, dsn)
	case MysqlStoreEngine:
		log.WithContext(ctx).Info("using MySQL store engine")
		return newMysqlStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported kind of store: %s", kind)
	}
}

func newPostgresStore(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		var ok bool
		dsn, ok = os.LookupEnv(postgresDsnEnv)
		if !ok {
			return nil, fmt.Errorf("%s is not set", postgresDsnEnv)
		}
	}
	return NewPostgresqlStore(ctx, dsn)
}

func newMysqlStore(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		var ok bool
		dsn, ok = os.LookupEnv(mysqlDsnEnv)
		if !ok {
			return nil, fmt.Errorf("%s is not set", mysqlDsnEnv)
		}
	}
	return NewMysqlStore(ctx, dsn)
}
