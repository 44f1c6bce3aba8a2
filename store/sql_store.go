package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/securedrop/trustchain/pki"
	"github.com/securedrop/trustchain/shared/status"
)

const (
	storeSqliteFileName = "journalists.db"
	connectTimeout      = 30 * time.Second
)

// SqlStore represents a journalist storage backed by a Sql DB
type SqlStore struct {
	db          *gorm.DB
	storeEngine Engine
}

// NewSqlStore creates a new SqlStore instance.
func NewSqlStore(ctx context.Context, db *gorm.DB, storeEngine Engine) (*SqlStore, error) {
	sql, err := db.DB()
	if err != nil {
		return nil, err
	}

	conns := runtime.NumCPU()
	if storeEngine == SqliteStoreEngine {
		conns = 1
	}
	sql.SetMaxOpenConns(conns)

	if err := db.AutoMigrate(&Journalist{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	log.WithContext(ctx).Debugf("journalist store ready on %s", storeEngine)
	return &SqlStore{db: db, storeEngine: storeEngine}, nil
}

func getGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	}
}

// NewSqliteStore creates a new SQLite store in dataDir
func NewSqliteStore(ctx context.Context, dataDir string) (*SqlStore, error) {
	storeStr := storeSqliteFileName + "?cache=shared"
	if runtime.GOOS == "windows" {
		// To avoid `The process cannot access the file because it is being used by another process` on Windows
		storeStr = storeSqliteFileName
	}

	file := filepath.Join(dataDir, storeStr)
	db, err := gorm.Open(sqlite.Open(file), getGormConfig())
	if err != nil {
		return nil, err
	}

	return NewSqlStore(ctx, db, SqliteStoreEngine)
}

// openWithRetry connects to a database server, retrying while it is still starting up
func openWithRetry(ctx context.Context, dialector gorm.Dialector) (*gorm.DB, error) {
	var db *gorm.DB
	operation := func() error {
		var err error
		db, err = gorm.Open(dialector, getGormConfig())
		if err != nil {
			log.WithContext(ctx).Debugf("failed connecting to the journalist store, retrying: %v", err)
		}
		return err
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         5 * time.Second,
		MaxElapsedTime:      connectTimeout,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return db, nil
}

// NewPostgresqlStore creates a new Postgres store.
func NewPostgresqlStore(ctx context.Context, dsn string) (*SqlStore, error) {
	db, err := openWithRetry(ctx, postgres.Open(dsn))
	if err != nil {
		return nil, err
	}

	return NewSqlStore(ctx, db, PostgresStoreEngine)
}

// NewMysqlStore creates a new MySQL store.
func NewMysqlStore(ctx context.Context, dsn string) (*SqlStore, error) {
	db, err := openWithRetry(ctx, mysql.Open(dsn+"?charset=utf8&parseTime=True&loc=Local"))
	if err != nil {
		return nil, err
	}

	return NewSqlStore(ctx, db, MysqlStoreEngine)
}

// SaveJournalist inserts pj or replaces the row with the same signing key. The ID of an
// existing row is kept.
func (s *SqlStore) SaveJournalist(ctx context.Context, pj *pki.PublicJournalist) (*Journalist, error) {
	start := time.Now()
	j := newJournalist(xid.New().String(), pj)

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signing_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"signing_signature", "fetching_key", "fetching_signature", "updated_at"}),
	}).Create(j)
	if result.Error != nil {
		log.WithContext(ctx).Errorf("failed to save journalist %s: %v", pj.SigningKey, result.Error)
		return nil, status.Wrapf(result.Error, status.IOFailure, "save journalist")
	}

	saved, err := s.GetJournalist(ctx, pj.SigningKey)
	if err != nil {
		return nil, err
	}
	stored, err := saved.Public()
	if err != nil {
		return nil, err
	}
	if *stored != *pj {
		return nil, status.Errorf(status.MalformedStorage, "journalist %s was stored with different key material", saved.ID)
	}

	log.WithContext(ctx).Tracef("saved journalist %s in %v", saved.ID, time.Since(start))
	return saved, nil
}

// GetJournalist returns the journalist with the given signing key
func (s *SqlStore) GetJournalist(ctx context.Context, signingKey pki.VerifyingKey) (*Journalist, error) {
	var j Journalist
	result := s.db.WithContext(ctx).Where("signing_key = ?", signingKey.String()).First(&j)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, status.NewJournalistNotFoundError(signingKey.String())
		}
		return nil, status.Wrapf(result.Error, status.IOFailure, "get journalist")
	}
	return &j, nil
}

// GetAllJournalists returns all accepted journalists, oldest first
func (s *SqlStore) GetAllJournalists(ctx context.Context) ([]*Journalist, error) {
	var journalists []*Journalist
	result := s.db.WithContext(ctx).Order("created_at, id").Find(&journalists)
	if result.Error != nil {
		return nil, status.Wrapf(result.Error, status.IOFailure, "get journalists")
	}
	return journalists, nil
}

// GetStoreEngine returns underlying store engine
func (s *SqlStore) GetStoreEngine() Engine {
	return s.storeEngine
}

// Close closes the underlying DB connection
func (s *SqlStore) Close(_ context.Context) error {
	sql, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get db: %w", err)
	}
	return sql.Close()
}
