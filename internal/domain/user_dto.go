package domain

import (
	"time"
)

// UserDto — представление пользователя для API
type UserDto struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// CreateUserPayload — тело запроса на создание пользователя
type CreateUserPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateUserPayload — тело запроса на частичное обновление.
// Поля, которых нет в JSON, остаются незаданными (Set == false).
// Для name и email пустая строка тоже считается "не передано".
type UpdateUserPayload struct {
	Name     Optional[string] `json:"name"`
	Email    Optional[string] `json:"email"`
	IsActive Optional[bool]   `json:"isActive"`
}

// NameValue возвращает имя, если оно передано и не пустое
func (p UpdateUserPayload) NameValue() (string, bool) {
	if !p.Name.Set || p.Name.Value == "" {
		return "", false
	}
	return p.Name.Value, true
}

// EmailValue возвращает email, если он передан и не пустой
func (p UpdateUserPayload) EmailValue() (string, bool) {
	if !p.Email.Set || p.Email.Value == "" {
		return "", false
	}
	return p.Email.Value, true
}
