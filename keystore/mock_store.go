package keystore

import (
	"context"

	"github.com/securedrop/trustchain/shared/status"
)

// MockStore mocks the Store interface
type MockStore struct {
	SaveRecordFunc  func(ctx context.Context, r *Record) error
	LoadRecordFunc  func(ctx context.Context, name string) (*Record, error)
	ListRecordsFunc func(ctx context.Context, prefix string) ([]string, error)
}

// SaveRecord mocks SaveRecord of the Store interface
func (m *MockStore) SaveRecord(ctx context.Context, r *Record) error {
	if m.SaveRecordFunc != nil {
		return m.SaveRecordFunc(ctx, r)
	}
	return status.Errorf(status.Internal, "SaveRecord is not implemented")
}

// LoadRecord mocks LoadRecord of the Store interface
func (m *MockStore) LoadRecord(ctx context.Context, name string) (*Record, error) {
	if m.LoadRecordFunc != nil {
		return m.LoadRecordFunc(ctx, name)
	}
	return nil, status.Errorf(status.Internal, "LoadRecord is not implemented")
}

// ListRecords mocks ListRecords of the Store interface
func (m *MockStore) ListRecords(ctx context.Context, prefix string) ([]string, error) {
	if m.ListRecordsFunc != nil {
		return m.ListRecordsFunc(ctx, prefix)
	}
	return nil, status.Errorf(status.Internal, "ListRecords is not implemented")
}
