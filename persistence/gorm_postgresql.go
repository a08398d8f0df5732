// persistence/gorm_postgresql.go
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/drawserver/models"
)

// GormPostgreSQL stores room documents as jsonb rows via GORM.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormRoom{}, &models.GormArtwork{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveRoom inserts a new document or performs a version-checked update.
// An update that matches zero rows means another writer got there first.
func (p *GormPostgreSQL) SaveRoom(room *models.Room) error {
	if room.Version == 0 {
		room.Version = 1
		data, err := json.Marshal(room)
		if err != nil {
			return err
		}
		row := models.GormRoom{
			RoomID:  room.ID,
			Code:    room.Code,
			Status:  string(room.Status),
			Version: room.Version,
			Data:    data,
		}
		if err := p.db.Create(&row).Error; err != nil {
			room.Version = 0
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Rooms are keyed by uuid, so a duplicate key is the code.
				return ErrDuplicateCode
			}
			return err
		}
		return nil
	}

	next := room.Version + 1
	previous := room.Version
	room.Version = next
	data, err := json.Marshal(room)
	if err != nil {
		room.Version = previous
		return err
	}

	result := p.db.Model(&models.GormRoom{}).
		Where("room_id = ? AND version = ?", room.ID, previous).
		Updates(map[string]interface{}{
			"status":  string(room.Status),
			"version": next,
			"data":    data,
		})
	if result.Error != nil {
		room.Version = previous
		return result.Error
	}
	if result.RowsAffected == 0 {
		room.Version = previous
		var count int64
		if err := p.db.Model(&models.GormRoom{}).
			Where("room_id = ?", room.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrRecordNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (p *GormPostgreSQL) LoadRoom(roomID string) (*models.Room, error) {
	var row models.GormRoom
	if err := p.db.Where("room_id = ?", roomID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return decodeRoomRow(&row)
}

func (p *GormPostgreSQL) LoadRoomByCode(code string) (*models.Room, error) {
	var row models.GormRoom
	if err := p.db.Where("code = ?", code).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return decodeRoomRow(&row)
}

func decodeRoomRow(row *models.GormRoom) (*models.Room, error) {
	room := &models.Room{}
	if err := json.Unmarshal(row.Data, room); err != nil {
		return nil, fmt.Errorf("corrupt room document %s: %w", row.RoomID, err)
	}
	room.Version = row.Version
	return room, nil
}

func (p *GormPostgreSQL) DeleteRoom(roomID string) error {
	result := p.db.Where("room_id = ?", roomID).Delete(&models.GormRoom{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *GormPostgreSQL) CodeExists(code string) (bool, error) {
	var count int64
	if err := p.db.Model(&models.GormRoom{}).
		Where("code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveArtworks writes all composites of a finished game in one transaction.
func (p *GormPostgreSQL) SaveArtworks(records []models.ArtworkRecord) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			players, err := json.Marshal(record.Players)
			if err != nil {
				return err
			}
			row := models.GormArtwork{
				RoomID:   record.RoomID,
				RoomCode: record.RoomCode,
				Slot:     record.Slot,
				Image:    record.Image,
				Players:  players,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *GormPostgreSQL) LoadArtworks(roomCode string) ([]models.ArtworkRecord, error) {
	var rows []models.GormArtwork
	if err := p.db.Where("room_code = ?", roomCode).
		Order("slot asc").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.ArtworkRecord, 0, len(rows))
	for _, row := range rows {
		var players []string
		if len(row.Players) > 0 {
			_ = json.Unmarshal(row.Players, &players)
		}
		records = append(records, models.ArtworkRecord{
			RoomID:    row.RoomID,
			RoomCode:  row.RoomCode,
			Slot:      row.Slot,
			Image:     row.Image,
			Players:   players,
			CreatedAt: row.CreatedAt,
		})
	}
	return records, nil
}

func (p *GormPostgreSQL) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
