package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewTicketRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewTicketRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewSubscriptionRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewSubscriptionRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewTripRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewTripRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewDeviceRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewDeviceRepository(pool)
	assert.NotNil(t, repo)
}

func TestNewAccessLogRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewAccessLogRepository(pool)
	assert.NotNil(t, repo)
}
