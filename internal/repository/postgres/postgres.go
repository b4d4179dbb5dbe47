package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/queuedesk/ticketero/internal/repository"
)

type ticketRepository struct {
	db *sqlx.DB
}

type advisorRepository struct {
	db *sqlx.DB
}

type messageRepository struct {
	db *sqlx.DB
}

type userRepository struct {
	db *sqlx.DB
}

func NewTicketRepository(db *sqlx.DB) repository.TicketRepository {
	return &ticketRepository{db: db}
}

func NewAdvisorRepository(db *sqlx.DB) repository.AdvisorRepository {
	return &advisorRepository{db: db}
}

func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}
