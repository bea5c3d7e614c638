package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// 预测类型
const (
	PredictionTypeTabular = "tabular"
	PredictionTypeEcg     = "ecg"
)

// Prediction 预测记录模型。成功的流水线结束时创建一次,此后不可变。
type Prediction struct {
	ID              string    `gorm:"primarykey;size:36" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	Type            string    `gorm:"size:20;not null;index" json:"type"` // tabular, ecg
	InputData       JSONMap   `gorm:"type:text;not null" json:"input_data"`
	ResultData      JSONMap   `gorm:"type:text;not null" json:"result_data"`
	ConfidenceScore float64   `gorm:"not null" json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`

	// 关联
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// TableName 指定表名
func (Prediction) TableName() string {
	return "predictions"
}

// TabularData 结构化输入明细表,与Prediction 1:1,用于过滤查询
type TabularData struct {
	PredictionID string `gorm:"primarykey;size:36" json:"prediction_id"`
	Age          int    `gorm:"not null" json:"age"`
	Gender       int    `gorm:"not null" json:"gender"`
	Height       int    `gorm:"not null" json:"height"`
	Weight       int    `gorm:"not null" json:"weight"`
	ApHi         int    `gorm:"not null" json:"ap_hi"`
	ApLo         int    `gorm:"not null" json:"ap_lo"`
	Cholesterol  int    `gorm:"not null" json:"cholesterol"`
	Gluc         int    `gorm:"not null" json:"gluc"`
	Smoke        int    `gorm:"not null" json:"smoke"`
	Alco         int    `gorm:"not null" json:"alco"`
	Active       int    `gorm:"not null" json:"active"`
}

// TableName 指定表名
func (TabularData) TableName() string {
	return "tabular_data"
}

// EcgData 信号文件明细表,与Prediction 1:1
type EcgData struct {
	PredictionID  string   `gorm:"primarykey;size:36" json:"prediction_id"`
	FilePath      string   `gorm:"type:text;not null" json:"file_path"`
	FileName      string   `gorm:"size:100;not null" json:"file_name"`
	FileSize      int      `gorm:"not null" json:"file_size"`
	Abnormalities JSONList `gorm:"type:text" json:"abnormalities"`
}

// TableName 指定表名
func (EcgData) TableName() string {
	return "ecg_data"
}

// Visualization 渲染产物文件引用,归属于其Prediction
type Visualization struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	PredictionID string    `gorm:"size:36;index" json:"prediction_id"`
	FilePath     string    `gorm:"type:text;not null" json:"file_path"`
	FileType     string    `gorm:"size:20;not null" json:"file_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (Visualization) TableName() string {
	return "visualizations"
}

// JSONMap 自定义JSON类型
type JSONMap map[string]interface{}

// Scan 实现sql.Scanner接口
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Value 实现driver.Valuer接口
func (j JSONMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// NewJSONMap 将任意可序列化结构转换为JSONMap
func NewJSONMap(v interface{}) (JSONMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// JSONList 自定义JSON数组类型
type JSONList []map[string]interface{}

// Scan 实现sql.Scanner接口
func (j *JSONList) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Value 实现driver.Valuer接口
func (j JSONList) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// NewJSONList 将任意可序列化切片转换为JSONList
func NewJSONList(v interface{}) (JSONList, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var l JSONList
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return l, nil
}
