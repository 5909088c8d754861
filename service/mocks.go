package service

import (
	"context"
	"time"

	"walottery/models"
	"walottery/sui"

	"github.com/stretchr/testify/mock"
)

// MockLotteryRepository is a mock implementation of LotteryRepository
type MockLotteryRepository struct {
	mock.Mock
}

func (m *MockLotteryRepository) Upsert(ctx context.Context, lottery *models.LotteryMirror) error {
	args := m.Called(ctx, lottery)
	return args.Error(0)
}

func (m *MockLotteryRepository) ListRecent(ctx context.Context, limit int) ([]*models.LotteryMirror, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LotteryMirror), args.Error(1)
}

func (m *MockLotteryRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.LotteryMirror, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LotteryMirror), args.Error(1)
}

// MockCursorRepository is a mock implementation of CursorRepository
type MockCursorRepository struct {
	mock.Mock
}

func (m *MockCursorRepository) Get(ctx context.Context) (*models.IndexerCursor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IndexerCursor), args.Error(1)
}

func (m *MockCursorRepository) Save(ctx context.Context, cursor *models.IndexerCursor) error {
	args := m.Called(ctx, cursor)
	return args.Error(0)
}

// MockLedgerClient is a mock implementation of LedgerClient
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) QueryEvents(ctx context.Context, eventType string, cursor *sui.EventID, limit int) (*sui.EventPage, error) {
	args := m.Called(ctx, eventType, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.EventPage), args.Error(1)
}

func (m *MockLedgerClient) GetLotteryState(ctx context.Context, lotteryID string) (*sui.LotteryState, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.LotteryState), args.Error(1)
}

func (m *MockLedgerClient) GetLotteryMetadata(ctx context.Context, lotteryID string) (*sui.LotteryMetadata, error) {
	args := m.Called(ctx, lotteryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.LotteryMetadata), args.Error(1)
}

func (m *MockLedgerClient) MoveCall(ctx context.Context, signer *sui.Signer, packageID, module, function string, objectArgs []string, gasBudget uint64) (string, error) {
	args := m.Called(ctx, signer, packageID, module, function, objectArgs, gasBudget)
	return args.String(0), args.Error(1)
}
