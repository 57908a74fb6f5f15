package immich

import (
	"context"
	"sort"
	"sync"

	"github.com/kilupskalvis/immich-tools/internal/models"
)

// AssetUpdate records a single UpdateAsset call made against MockClient.
type AssetUpdate struct {
	ID     string
	Update models.UpdateAsset
}

// MockClient is a mock implementation of APIClient for testing.
// It is safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// Paths is returned by UniquePaths
	Paths []string
	// Folders maps folder path to the assets inside it
	Folders map[string][]*models.Asset

	// Err can be set to make every method return an error
	Err error
	// FolderErr fails FolderAssets for specific paths
	FolderErr map[string]error
	// StackErr fails CreateStack
	StackErr error
	// UpdateErr fails UpdateAsset for specific asset ids
	UpdateErr map[string]error

	// Recorded calls
	FolderCalls []string
	Stacks      [][]string
	Updates     []AssetUpdate
}

// NewMockClient creates a new MockClient for testing.
func NewMockClient() *MockClient {
	return &MockClient{
		Folders:   make(map[string][]*models.Asset),
		FolderErr: make(map[string]error),
		UpdateErr: make(map[string]error),
	}
}

// AddAsset adds an asset to the folder it lives in.
func (m *MockClient) AddAsset(folder string, asset *models.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Folders[folder] = append(m.Folders[folder], asset)
}

// UniquePaths returns the configured paths.
func (m *MockClient) UniquePaths(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Paths, nil
}

// FolderAssets returns the assets stored for path.
func (m *MockClient) FolderAssets(ctx context.Context, path string) ([]*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FolderCalls = append(m.FolderCalls, path)
	if m.Err != nil {
		return nil, m.Err
	}
	if err := m.FolderErr[path]; err != nil {
		return nil, err
	}
	return m.Folders[path], nil
}

// CreateStack records the stack.
func (m *MockClient) CreateStack(ctx context.Context, assetIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if m.StackErr != nil {
		return m.StackErr
	}
	m.Stacks = append(m.Stacks, append([]string(nil), assetIDs...))
	return nil
}

// UpdateAsset records the update.
func (m *MockClient) UpdateAsset(ctx context.Context, id string, update *models.UpdateAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if err := m.UpdateErr[id]; err != nil {
		return err
	}
	m.Updates = append(m.Updates, AssetUpdate{ID: id, Update: *update})
	return nil
}

// SortedUpdates returns the recorded updates ordered by asset id. Concurrent
// callers record in completion order, which is not deterministic.
func (m *MockClient) SortedUpdates() []AssetUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]AssetUpdate(nil), m.Updates...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Verify that *MockClient implements APIClient at compile time
var _ APIClient = (*MockClient)(nil)
