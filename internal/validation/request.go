// Package validation содержит функции валидации входных данных.
package validation

import (
	"bytes"

	"github.com/mmeshcher/bizscan-system/internal/model"
)

// IsValidAnalysisRequest проверяет форму запроса анализа: собственный
// профиль обязателен, конкурентов должно быть не меньше одного.
// Невалидный запрос отклоняется до любого сетевого вызова.
func IsValidAnalysisRequest(req *model.AnalysisRequest) bool {
	if req == nil {
		return false
	}

	if !isPresent(req.Subject) {
		return false
	}

	if len(req.Competitors) == 0 {
		return false
	}

	for _, c := range req.Competitors {
		if !isPresent(c) {
			return false
		}
	}

	return true
}

func isPresent(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
