package domain

import (
	"bytes"
	"encoding/json"
)

// Optional различает три состояния поля запроса: отсутствует, null, задано.
// null трактуется так же, как отсутствие значения.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some создает заданное значение
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// UnmarshalJSON вызывается только если ключ присутствует в JSON
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = v
	o.Set = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Get возвращает значение и признак его наличия
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}
