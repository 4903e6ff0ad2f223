package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/olympiad-service/internal/models"
	"github.com/SAP-F-2025/olympiad-service/internal/repositories"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type repository struct {
	db       *gorm.DB
	question repositories.QuestionRepository
	attempt  repositories.AttemptRepository
	answer   repositories.AnswerRepository
}

// NewRepository returns the gorm backed repository set.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:       db,
		question: NewQuestionPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
		answer:   NewAnswerPostgreSQL(db),
	}
}

func (r *repository) Question() repositories.QuestionRepository { return r.question }
func (r *repository) Attempt() repositories.AttemptRepository   { return r.attempt }
func (r *repository) Answer() repositories.AnswerRepository     { return r.answer }

func (r *repository) WithTransaction(ctx context.Context, fn func(tx repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// AutoMigrate creates or updates the tables used by the service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Question{},
		&models.Attempt{},
		&models.StudentAnswer{},
	)
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repositories.ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repositories.ErrDuplicate
	}
	return err
}
