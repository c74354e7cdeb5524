package model

import "time"

// CaloriesResult is the result of one remote calorie computation.
type CaloriesResult struct {
	DishName           string  `json:"dish_name"`
	Servings           float64 `json:"servings"`
	CaloriesPerServing float64 `json:"calories_per_serving"`
	TotalCalories      float64 `json:"total_calories"`
	Source             string  `json:"source"`
}

// HistoryRecord is a CaloriesResult stored in a user's history.
// Records are immutable once created.
type HistoryRecord struct {
	CaloriesResult
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}
