package domain

import (
	"time"
)

// User представляет модель пользователя в системе.
// Соответствует таблице 'users' в базе данных.
type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id" db:"id"`
	Name      string     `gorm:"size:255;not null" json:"name" db:"name"`
	Email     string     `gorm:"size:255;not null;uniqueIndex" json:"email" db:"email"`
	IsActive  bool       `gorm:"not null" json:"isActive" db:"is_active"`
	CreatedAt time.Time  `gorm:"not null" json:"createdAt" db:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt,omitempty" db:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// ToDto проецирует сущность в представление для API
func (u *User) ToDto() UserDto {
	return UserDto{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
