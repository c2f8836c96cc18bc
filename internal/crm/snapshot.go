package crm

import (
	"strings"
	"sync"
)

// Snapshot is the locally held list of clients. Engine results are applied
// to it on success; it is never assumed to mirror the remote read model.
type Snapshot struct {
	mu      sync.RWMutex
	clients []*Client
}

// Replace swaps the whole list, as after a fresh read.
func (s *Snapshot) Replace(clients []*Client) {
	copied := make([]*Client, 0, len(clients))
	for _, c := range clients {
		if c == nil {
			continue
		}
		cc := *c
		copied = append(copied, &cc)
	}

	s.mu.Lock()
	s.clients = copied
	s.mu.Unlock()
}

// List returns copies of every client in snapshot order.
func (s *Snapshot) List() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Client, len(s.clients))
	for i, c := range s.clients {
		cc := *c
		out[i] = &cc
	}
	return out
}

// Get returns a copy of the client with the given ID.
func (s *Snapshot) Get(clientID string) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		if c.ClientID == clientID {
			cc := *c
			return &cc, true
		}
	}
	return nil, false
}

// Upsert replaces the client with the same ID or appends it.
func (s *Snapshot) Upsert(c *Client) {
	cc := *c

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.clients {
		if existing.ClientID == c.ClientID {
			s.clients[i] = &cc
			return
		}
	}
	s.clients = append(s.clients, &cc)
}

// applyStatus applies a successful status update and returns the updated
// client. Clients not in the snapshot get a partial record holding only
// what the update carries.
func (s *Snapshot) applyStatus(u StatusUpdate) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.ClientID != u.ClientID {
			continue
		}
		c.Status = u.Status
		if u.Description != nil {
			c.Description = *u.Description
		}
		c.UpdatedAt = u.UpdatedAt
		cc := *c
		return &cc
	}

	c := &Client{
		ClientID:   u.ClientID,
		EmployeeID: u.EmployeeID,
		Status:     u.Status,
		UpdatedAt:  u.UpdatedAt,
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	return c
}

// setImage records a new image URL for a client already in the snapshot.
func (s *Snapshot) setImage(clientID, imageURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.ClientID == clientID {
			c.ImageURL = imageURL
			return
		}
	}
}

// Search returns clients whose business name, industry or location contains
// query, ignoring case. An empty query returns every client.
func (s *Snapshot) Search(query string) []*Client {
	all := s.List()
	if strings.TrimSpace(query) == "" {
		return all
	}

	var out []*Client
	for _, c := range all {
		if Matches(c, query) {
			out = append(out, c)
		}
	}
	return out
}

// Matches reports whether query occurs in the client's business name,
// industry or location, ignoring case.
func Matches(c *Client, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return strings.Contains(strings.ToLower(c.BusinessName), q) ||
		strings.Contains(strings.ToLower(c.Industry), q) ||
		strings.Contains(strings.ToLower(c.Location), q)
}
