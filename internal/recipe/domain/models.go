package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipeverse/pkg/db/pagination"
	"gorm.io/datatypes"
)

type Recipe struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID     string         `gorm:"not null;index" json:"user_id"`
	Title      string         `gorm:"not null" json:"title"`
	Cuisine    string         `gorm:"not null" json:"cuisine"`
	Parameters datatypes.JSON `gorm:"not null" json:"parameters"`
	ResultText string         `gorm:"column:result_text;not null" json:"result_text"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (Recipe) TableName() string { return "recipes" }

type ListRecipeResponse struct {
	pagination.PageInfo
	Recipes []Recipe `json:"recipes"`
}
