package di

import (
	"context"
	"testing"

	"github.com/openfoodnet/api/internal/platform/config"
	"github.com/openfoodnet/api/internal/repositories/memory"
)

func TestNewContainerWiresServices(t *testing.T) {
	cfg := config.Config{}
	container, err := NewContainer(context.Background(), cfg, memory.NewRegistry())
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	if container.Services.Orders == nil {
		t.Fatal("expected order update service wired")
	}
	if container.Services.Fees == nil {
		t.Fatal("expected fee catalog service wired")
	}
	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), config.Config{}, nil); err == nil {
		t.Fatal("expected error for nil registry")
	}
}
