// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wfunc/drawserver/models"
)

// PostgreSQL is the raw database/sql implementation of Database, for
// deployments that prefer plain SQL over the GORM store.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS rooms (
            id SERIAL PRIMARY KEY,
            room_id TEXT UNIQUE NOT NULL,
            code VARCHAR(8) UNIQUE NOT NULL,
            status TEXT NOT NULL,
            version BIGINT NOT NULL DEFAULT 1,
            data JSONB NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS artworks (
            id SERIAL PRIMARY KEY,
            room_id TEXT NOT NULL,
            room_code VARCHAR(8) NOT NULL,
            slot INT NOT NULL,
            image TEXT NOT NULL,
            players JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	return err
}

func (p *PostgreSQL) SaveRoom(room *models.Room) error {
	if room.Version == 0 {
		room.Version = 1
		data, err := json.Marshal(room)
		if err != nil {
			return err
		}
		_, err = p.db.Exec(`
            INSERT INTO rooms (room_id, code, status, version, data)
            VALUES ($1, $2, $3, $4, $5)`,
			room.ID, room.Code, string(room.Status), room.Version, data)
		if err != nil {
			room.Version = 0
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
				return ErrDuplicateCode
			}
		}
		return err
	}

	previous := room.Version
	room.Version++
	data, err := json.Marshal(room)
	if err != nil {
		room.Version = previous
		return err
	}

	result, err := p.db.Exec(`
        UPDATE rooms
        SET status = $1, version = $2, data = $3, updated_at = CURRENT_TIMESTAMP
        WHERE room_id = $4 AND version = $5`,
		string(room.Status), room.Version, data, room.ID, previous)
	if err != nil {
		room.Version = previous
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		room.Version = previous
		return err
	}
	if affected == 0 {
		room.Version = previous
		var exists bool
		if err := p.db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM rooms WHERE room_id = $1)`,
			room.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrRecordNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (p *PostgreSQL) loadRoomWhere(clause string, arg interface{}) (*models.Room, error) {
	var (
		data    []byte
		version int64
	)
	err := p.db.QueryRow(
		`SELECT data, version FROM rooms WHERE `+clause, arg).Scan(&data, &version)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	room := &models.Room{}
	if err := json.Unmarshal(data, room); err != nil {
		return nil, fmt.Errorf("corrupt room document: %w", err)
	}
	room.Version = version
	return room, nil
}

func (p *PostgreSQL) LoadRoom(roomID string) (*models.Room, error) {
	return p.loadRoomWhere("room_id = $1", roomID)
}

func (p *PostgreSQL) LoadRoomByCode(code string) (*models.Room, error) {
	return p.loadRoomWhere("code = $1", code)
}

func (p *PostgreSQL) DeleteRoom(roomID string) error {
	result, err := p.db.Exec(`DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *PostgreSQL) CodeExists(code string) (bool, error) {
	var exists bool
	err := p.db.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE code = $1)`, code).Scan(&exists)
	return exists, err
}

func (p *PostgreSQL) SaveArtworks(records []models.ArtworkRecord) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, record := range records {
		players, err := json.Marshal(record.Players)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
            INSERT INTO artworks (room_id, room_code, slot, image, players)
            VALUES ($1, $2, $3, $4, $5)`,
			record.RoomID, record.RoomCode, record.Slot, record.Image, players)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *PostgreSQL) LoadArtworks(roomCode string) ([]models.ArtworkRecord, error) {
	rows, err := p.db.Query(`
        SELECT room_id, room_code, slot, image, players, created_at
        FROM artworks WHERE room_code = $1 ORDER BY slot ASC`, roomCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ArtworkRecord
	for rows.Next() {
		var (
			record  models.ArtworkRecord
			players []byte
		)
		if err := rows.Scan(&record.RoomID, &record.RoomCode, &record.Slot,
			&record.Image, &players, &record.CreatedAt); err != nil {
			return nil, err
		}
		if len(players) > 0 {
			_ = json.Unmarshal(players, &record.Players)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (p *PostgreSQL) Ping() error {
	return p.db.Ping()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
