package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	name     string
	priority int
}

func (p *stubProvider) Name() string                             { return p.name }
func (p *stubProvider) Priority() int                            { return p.priority }
func (p *stubProvider) CanConnect(ctx context.Context) bool      { return false }
func (p *stubProvider) Connect(ctx context.Context) (Bus, error) { return nil, nil }

func TestSortByPriorityOrdersHighestFirst(t *testing.T) {
	providers := []Provider{
		&stubProvider{name: "channel", priority: 1},
		&stubProvider{name: "nats", priority: 100},
		&stubProvider{name: "amqp", priority: 50},
	}

	SortByPriority(providers)

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	assert.Equal(t, []string{"nats", "amqp", "channel"}, names)
}

func TestSortByPriorityIsStableForTies(t *testing.T) {
	providers := []Provider{
		&stubProvider{name: "first", priority: 10},
		&stubProvider{name: "second", priority: 10},
		&stubProvider{name: "third", priority: 10},
	}

	SortByPriority(providers)

	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
}
