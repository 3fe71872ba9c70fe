package runtime

import (
	"sync"

	"cms-messaging/contract"
	"cms-messaging/domain/event"
)

type Set map[string]struct{}

// Registry is the process-wide session registry: it maps each principal
// to their live connections and each conversation to the connections
// joined to its channel. A principal is online iff their connection set
// is non-empty. Nothing here is persisted; a restart means everyone is
// offline until they reconnect.
type Registry struct {
	mu        sync.RWMutex
	publisher contract.IPublisher

	connections map[string]map[string]contract.EventSink // principal -> connID -> sink
	owner       map[string]string                        // connID -> principal
	channels    map[string]Set                           // conversationID -> connIDs
	joined      map[string]Set                           // connID -> conversationIDs
}

func NewRegistry(publisher contract.IPublisher) *Registry {
	return &Registry{
		publisher:   publisher,
		connections: make(map[string]map[string]contract.EventSink),
		owner:       make(map[string]string),
		channels:    make(map[string]Set),
		joined:      make(map[string]Set),
	}
}

// RegisterConnection adds a live connection for a principal. A presence
// event fires only on the offline->online transition, so a second tab
// stays silent.
func (r *Registry) RegisterConnection(principalID, connID string, sink contract.EventSink) {
	r.mu.Lock()
	conns, existed := r.connections[principalID]
	if !existed {
		conns = make(map[string]contract.EventSink)
		r.connections[principalID] = conns
	}
	conns[connID] = sink
	r.owner[connID] = principalID
	wentOnline := !existed
	r.mu.Unlock()

	if wentOnline {
		r.publisher.Publish(event.PresenceUpdate{UserID: principalID, Online: true})
	}
}

// UnregisterConnection removes a connection and its channel memberships.
// When the principal's last connection goes away the entry is removed
// entirely and a single offline presence event fires.
func (r *Registry) UnregisterConnection(principalID, connID string) {
	r.mu.Lock()
	conns, ok := r.connections[principalID]
	if ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.connections, principalID)
		}
	}
	wentOffline := ok && len(conns) == 0

	delete(r.owner, connID)
	for conversationID := range r.joined[connID] {
		if members, ok := r.channels[conversationID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.channels, conversationID)
			}
		}
	}
	delete(r.joined, connID)
	r.mu.Unlock()

	if wentOffline {
		r.publisher.Publish(event.PresenceUpdate{UserID: principalID, Online: false})
	}
}

// JoinConversation subscribes a connection to a conversation channel.
// Unknown connection ids are ignored: an anonymous socket never joins.
func (r *Registry) JoinConversation(connID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owner[connID]; !ok {
		return
	}
	if _, ok := r.channels[conversationID]; !ok {
		r.channels[conversationID] = make(Set)
	}
	r.channels[conversationID][connID] = struct{}{}
	if _, ok := r.joined[connID]; !ok {
		r.joined[connID] = make(Set)
	}
	r.joined[connID][conversationID] = struct{}{}
}

// LeaveConversation removes a connection from a conversation channel and
// cleans up empty sets to avoid leaking entries over time.
func (r *Registry) LeaveConversation(connID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.channels[conversationID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.channels, conversationID)
		}
	}
	if convos, ok := r.joined[connID]; ok {
		delete(convos, conversationID)
		if len(convos) == 0 {
			delete(r.joined, connID)
		}
	}
}

func (r *Registry) IsOnline(principalID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections[principalID]) > 0
}

// SinksForConversation resolves the connections joined to a conversation
// channel into their sinks. It performs a two-step lookup: channel
// members give connection ids, the owner map gives the principal whose
// sink set holds the actual channel. Returns nil for an unknown channel.
func (r *Registry) SinksForConversation(conversationID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[conversationID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for connID := range members {
		principalID, ok := r.owner[connID]
		if !ok {
			continue
		}
		if sink, ok := r.connections[principalID][connID]; ok {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// AllSinks returns every live sink, used for global presence broadcast.
func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, conns := range r.connections {
		for _, sink := range conns {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
