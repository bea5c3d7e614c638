package dto

import "time"

// HistoryItem 预测历史列表条目
type HistoryItem struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Result     string    `json:"result"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse 预测历史列表响应
type HistoryResponse struct {
	Predictions []HistoryItem `json:"predictions"`
	Total       int64         `json:"total"`
}
