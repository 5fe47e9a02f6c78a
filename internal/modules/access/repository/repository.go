package repository

import (
	"context"

	"github.com/khaingmyozaw/file-search-bot/internal/modules/access/domain"
)

// Repository defines persistence for managers and the channel allow-list
type Repository interface {
	SaveManager(ctx context.Context, manager *domain.Manager) error
	DeleteManager(ctx context.Context, userID int64) (bool, error)
	IsManager(ctx context.Context, userID int64) (bool, error)
	ListManagers(ctx context.Context) ([]*domain.Manager, error)

	SaveChannel(ctx context.Context, channel *domain.Channel) error
	GetChannel(ctx context.Context, channelID int64) (*domain.Channel, error)
	SetChannelState(ctx context.Context, channelID int64, state domain.ChannelState) (bool, error)
	ListChannels(ctx context.Context) ([]*domain.Channel, error)
}
