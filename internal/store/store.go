// Package store persists the session audit trail and periodic stats
// snapshots the rest of the server only keeps in memory. It follows the
// teacher's deps.Deps{DB *gorm.DB} shape: one *gorm.DB, opened against
// either an embedded sqlite file (the teacher's glebarez/go-sqlite, a
// pure-Go driver needing no cgo) or Postgres, chosen by the caller.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SessionRecord audits one client's lifetime on the server: when it
// joined, from where, how long it lasted, and why it left.
type SessionRecord struct {
	ID               string `gorm:"primaryKey"`
	ClientID         uint32 `gorm:"index"`
	PeerAddr         string
	Port             int
	ConnectAt        time.Time
	DisconnectAt     *time.Time
	DisconnectReason string
}

// StatsSnapshot persists one tick of the server's stats-timer
// observation (spec 4.J item 3), so operators can graph history instead
// of only reading the live log tail.
type StatsSnapshot struct {
	ID          uint `gorm:"primaryKey"`
	TakenAt     time.Time
	ClientCount int
	ActiveCount int
	PoolInUse   int64
	PoolGets    int64
	PoolPuts    int64
	PoolMisses  int64
}

// Store wraps the gorm.DB handle and the audit operations the server
// calls into, mirroring the teacher's Deps struct but scoped to this
// domain's two tables instead of robot-webrtc's document store.
type Store struct {
	DB *gorm.DB
}

// OpenSQLite opens (creating if necessary) an embedded sqlite database
// at path, migrating the schema.
func OpenSQLite(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", path, err)
	}
	return open(db)
}

// OpenPostgres opens a Postgres database from a DSN connection string,
// migrating the schema.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("store: open postgres: %w", err)
	}
	return open(db)
}

func open(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&SessionRecord{}, &StatsSnapshot{}); err != nil {
		return nil, fmt.Errorf("store: automigrate: %w", err)
	}
	return &Store{DB: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordConnect inserts a new open-ended SessionRecord for a just-joined
// client and returns its correlation id.
func (s *Store) RecordConnect(clientID uint32, peerAddr string, port int) (string, error) {
	rec := SessionRecord{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		PeerAddr:  peerAddr,
		Port:      port,
		ConnectAt: time.Now(),
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		return "", fmt.Errorf("store: record connect: %w", err)
	}
	return rec.ID, nil
}

// RecordDisconnect closes out a SessionRecord with the time and reason
// the client left.
func (s *Store) RecordDisconnect(id, reason string) error {
	now := time.Now()
	err := s.DB.Model(&SessionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"disconnect_at":     now,
			"disconnect_reason": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("store: record disconnect: %w", err)
	}
	return nil
}

// RecordStats appends one stats-timer snapshot.
func (s *Store) RecordStats(snap StatsSnapshot) error {
	snap.TakenAt = time.Now()
	if err := s.DB.Create(&snap).Error; err != nil {
		return fmt.Errorf("store: record stats: %w", err)
	}
	return nil
}

// RecentSessions returns the most recent limit session records, newest
// first, for the admin surface.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	var out []SessionRecord
	err := s.DB.Order("connect_at DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent sessions: %w", err)
	}
	return out, nil
}
