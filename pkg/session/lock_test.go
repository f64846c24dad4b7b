package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/ritotombe/supportflow/pkg/ports"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, thread *ports.Thread) error { return nil }
func (nopStore) Load(ctx context.Context, threadID string) (*ports.Thread, error) {
	return &ports.Thread{ID: threadID}, nil
}
func (nopStore) Delete(ctx context.Context, threadID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)        { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("thread-%d", i)
		_ = mgr.Save(ctx, &ports.Thread{ID: id})
		_ = mgr.Delete(ctx, id)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
