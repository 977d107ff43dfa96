// internal/workers/assistant/synthesize-answer/models.go
package synthesizeanswer

import "versailles-assistant/internal/models"

type Input struct {
	Plan           models.Plan            `json:"plan"`
	PartialAnswers []models.PartialAnswer `json:"partial_answers"`
}

type Output struct {
	FinalAnswer models.FinalAnswer `json:"final_answer"`
}
