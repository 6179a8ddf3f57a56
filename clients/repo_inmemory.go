package clients

import (
	"fmt"
	"sort"
	"sync"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is an in-memory implementation of Repo
type InMemoryRepo struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewInMemoryRepo creates a repo holding copies of the given descriptors.
func NewInMemoryRepo(seed ...*Client) (*InMemoryRepo, error) {
	r := &InMemoryRepo{clients: make(map[string]*Client)}
	for _, c := range seed {
		if err := r.Upsert(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRepo creates a repo seeded with Defaults.
func NewDefaultRepo() *InMemoryRepo {
	r, err := NewInMemoryRepo(Defaults()...)
	if err != nil {
		panic(fmt.Sprintf("clients: invalid default descriptor: %v", err))
	}
	return r
}

func (r *InMemoryRepo) Upsert(client *Client) error {
	if client == nil {
		return fmt.Errorf("%w: nil client", ErrInvalidClient)
	}
	if err := client.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = client.clone()
	return nil
}

func (r *InMemoryRepo) Get(clientID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown client %q", ErrInvalidClient, clientID)
	}
	return client.clone(), nil
}

func (r *InMemoryRepo) List() ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Client, 0, len(r.clients))
	for _, v := range r.clients {
		list = append(list, v.clone())
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (c *Client) clone() *Client {
	cp := *c
	cp.SuccessCodes = append([]int(nil), c.SuccessCodes...)
	cp.PublicRoutes = append([]string(nil), c.PublicRoutes...)
	return &cp
}
