package repository

import (
	"context"

	"chat-assistant/backend/internal/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	Save(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	FindByUser(ctx context.Context, userID uint) ([]models.Message, error)
	FindAllOrderedByID(ctx context.Context) ([]models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// withRelations loads the owner and the replies, newest reply first
func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User").
		Preload("Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("messages.id DESC")
		}).
		Preload("Replies.User")
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return translate(r.db.WithContext(ctx).Omit("User", "Replies").Create(message).Error)
}

func (r *GormMessageRepository) Save(ctx context.Context, message *models.Message) error {
	return translate(r.db.WithContext(ctx).Omit("User", "Replies").Save(message).Error)
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := withRelations(r.db.WithContext(ctx)).First(&message, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

// FindByUser returns every message owned by userID, newest first
func (r *GormMessageRepository) FindByUser(ctx context.Context, userID uint) ([]models.Message, error) {
	var messages []models.Message
	err := withRelations(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&messages).Error
	return messages, translate(err)
}

func (r *GormMessageRepository) FindAllOrderedByID(ctx context.Context) ([]models.Message, error) {
	var messages []models.Message
	err := withRelations(r.db.WithContext(ctx)).
		Order("id DESC").
		Find(&messages).Error
	return messages, translate(err)
}
