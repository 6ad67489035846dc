package storage

import (
	"context"
	"fmt"

	"strangerly/backend/internal/models"

	"gorm.io/gorm"
)

// GormStore keeps chat history and reports in a SQL database.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// Migrate creates or updates the tables this store writes to.
func (s *GormStore) Migrate() error {
	if err := s.DB.AutoMigrate(&models.ChatHistory{}, &models.Report{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SaveMessage stores one relayed message.
func (s *GormStore) SaveMessage(ctx context.Context, msg models.Message) error {
	row := models.NewChatHistory(msg)
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("save message for room %s: %w", msg.RoomID, err)
	}
	return nil
}

// RecentMessages loads the newest limit messages of room in chronological order.
func (s *GormStore) RecentMessages(ctx context.Context, room string, limit int) ([]models.Message, error) {
	var rows []models.ChatHistory
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", room).
		Order("sent_at desc").Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load history for room %s: %w", room, err)
	}

	msgs := make([]models.Message, len(rows))
	for i, row := range rows {
		msgs[len(rows)-1-i] = row.ToMessage()
	}
	return msgs, nil
}

// SaveReport stores an abuse report.
func (s *GormStore) SaveReport(ctx context.Context, report *models.Report) error {
	if err := s.DB.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("save report against %s: %w", report.ReportedID, err)
	}
	return nil
}

// ListReports returns the newest reports first. Used by the admin tool.
func (s *GormStore) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// PurgeRoom deletes the stored history of room and returns the row count.
func (s *GormStore) PurgeRoom(ctx context.Context, room string) (int64, error) {
	res := s.DB.WithContext(ctx).Unscoped().Where("room_id = ?", room).Delete(&models.ChatHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge room %s: %w", room, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
