package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/davrot/todolist/internal/todo"
	"gorm.io/gorm"
)

// todoRow is the relational layout of a todo.
type todoRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Owner       string    `gorm:"not null;index"`
	Description string    `gorm:"not null"`
	TargetDate  time.Time `gorm:"type:date;not null"`
	Done        bool      `gorm:"not null;default:false"`
}

func (todoRow) TableName() string { return "todos" }

func (r todoRow) toTodo() *todo.Todo {
	return &todo.Todo{
		ID:          r.ID,
		Owner:       r.Owner,
		Description: r.Description,
		TargetDate:  todo.DateOf(r.TargetDate),
		Done:        r.Done,
	}
}

// GormRepo implements the repository on PostgreSQL through GORM.
type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo migrates the todos table and returns the repository.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&todoRow{}); err != nil {
		return nil, fmt.Errorf("migrate todos: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (g *GormRepo) ListByOwner(ctx context.Context, owner string) ([]*todo.Todo, error) {
	var rows []todoRow
	if err := g.db.WithContext(ctx).Where("owner = ?", owner).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*todo.Todo, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toTodo())
	}
	return out, nil
}

func (g *GormRepo) FindByID(ctx context.Context, id int64) (*todo.Todo, error) {
	var r todoRow
	if err := g.db.WithContext(ctx).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.toTodo(), nil
}

func (g *GormRepo) Insert(ctx context.Context, t *todo.Todo) (*todo.Todo, error) {
	r := todoRow{
		Owner:       t.Owner,
		Description: t.Description,
		TargetDate:  t.TargetDate,
		Done:        t.Done,
	}
	if err := g.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, err
	}
	return r.toTodo(), nil
}

func (g *GormRepo) Update(ctx context.Context, t *todo.Todo) error {
	res := g.db.WithContext(ctx).Model(&todoRow{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
		"description": t.Description,
		"target_date": t.TargetDate,
		"done":        t.Done,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormRepo) DeleteByID(ctx context.Context, id int64) error {
	res := g.db.WithContext(ctx).Delete(&todoRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
