// Package jsonstore — низкоуровневые операции с JSON-файлами состояния.
// Каждая таблица хранится в отдельном файле и перезаписывается целиком
// при каждой мутации. Никаких блокировок файлов и транзакций — процесс
// единственный писатель.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load читает JSON-файл path в v.
// Отсутствующий файл — не ошибка: v остаётся нетронутым (пустая таблица).
func Load(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("чтение %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("разбор %s: %w", path, err)
	}
	return nil
}

// Save сериализует v и перезаписывает файл path целиком.
// Формат — отступы в два пробела, чтобы файлы оставались читаемыми руками.
func Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("сериализация %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("запись %s: %w", path, err)
	}
	return nil
}
