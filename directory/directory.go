// Package directory provides in-memory indexes of renovations, channels and
// users. The notification core only consumes the narrow lookup contracts;
// these implementations back them for embedding and tests, keyed by plain
// integer ids rather than object graphs.
package directory

import (
	"sync"

	"collabrick/contract"
	"collabrick/domain"
)

var (
	_ contract.IChannelDirectory    = (*Channels)(nil)
	_ contract.IRenovationDirectory = (*Renovations)(nil)
	_ contract.IUserDirectory       = (*Users)(nil)
)

// Channels indexes chat channels and their memberships.
type Channels struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]domain.Channel
	members  map[domain.ChannelID]map[domain.UserID]struct{}
}

func NewChannels() *Channels {
	return &Channels{
		channels: make(map[domain.ChannelID]domain.Channel),
		members:  make(map[domain.ChannelID]map[domain.UserID]struct{}),
	}
}

func (c *Channels) Put(channel domain.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel.ID] = channel
	if _, ok := c.members[channel.ID]; !ok {
		c.members[channel.ID] = make(map[domain.UserID]struct{})
	}
}

func (c *Channels) AddMember(id domain.ChannelID, userID domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[id]; !ok {
		c.members[id] = make(map[domain.UserID]struct{})
	}
	c.members[id][userID] = struct{}{}
}

func (c *Channels) RemoveMember(id domain.ChannelID, userID domain.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members[id], userID)
}

func (c *Channels) Channel(id domain.ChannelID) (domain.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	channel, ok := c.channels[id]
	return channel, ok
}

func (c *Channels) IsMember(id domain.ChannelID, userID domain.UserID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[id][userID]
	return ok
}

func (c *Channels) Members(id domain.ChannelID) []domain.UserID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []domain.UserID
	for userID := range c.members[id] {
		ids = append(ids, userID)
	}
	return ids
}

// Renovations indexes renovations and their members with roles.
type Renovations struct {
	mu          sync.RWMutex
	renovations map[domain.RenovationID]domain.Renovation
	members     map[domain.RenovationID]map[domain.UserID]domain.MemberRole
}

func NewRenovations() *Renovations {
	return &Renovations{
		renovations: make(map[domain.RenovationID]domain.Renovation),
		members:     make(map[domain.RenovationID]map[domain.UserID]domain.MemberRole),
	}
}

// Put registers a renovation; the owner is always a member with RoleOwner.
func (r *Renovations) Put(renovation domain.Renovation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renovations[renovation.ID] = renovation
	if _, ok := r.members[renovation.ID]; !ok {
		r.members[renovation.ID] = make(map[domain.UserID]domain.MemberRole)
	}
	r.members[renovation.ID][renovation.OwnerID] = domain.RoleOwner
}

func (r *Renovations) AddMember(id domain.RenovationID, userID domain.UserID, role domain.MemberRole) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		r.members[id] = make(map[domain.UserID]domain.MemberRole)
	}
	r.members[id][userID] = role
}

func (r *Renovations) Renovation(id domain.RenovationID) (domain.Renovation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renovation, ok := r.renovations[id]
	return renovation, ok
}

func (r *Renovations) Members(id domain.RenovationID) []domain.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var members []domain.Member
	for userID, role := range r.members[id] {
		members = append(members, domain.Member{UserID: userID, Role: role})
	}
	return members
}

func (r *Renovations) RoleOf(id domain.RenovationID, userID domain.UserID) (domain.MemberRole, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.members[id][userID]
	return role, ok
}

func (r *Renovations) RenovationsFor(userID domain.UserID) []domain.RenovationID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []domain.RenovationID
	for id, members := range r.members {
		if _, ok := members[userID]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Users resolves display names.
type Users struct {
	mu    sync.RWMutex
	users map[domain.UserID]domain.User
}

func NewUsers() *Users {
	return &Users{users: make(map[domain.UserID]domain.User)}
}

func (u *Users) Put(user domain.User) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.ID] = user
}

func (u *Users) DisplayName(id domain.UserID) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.users[id]
	if !ok {
		return "", false
	}
	return user.Name, true
}
