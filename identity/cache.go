// Package identity is the session-scoped mapping from target-minted
// Object IDs to live object handles, so a client holding an Object ID from
// a previous reply can ask the controller to dereference it again (e.g.
// ObjectField navigation).
package identity

import "github.com/scala-ide/sdbg/wire"

// Cache is not safe for concurrent use; the Controller's single mailbox
// goroutine owns it.
type Cache struct {
	byID map[wire.ObjectID]wire.ObjectRef
}

// New returns an empty Cache, created alongside a Session and destroyed
// with it.
func New() *Cache {
	return &Cache{byID: make(map[wire.ObjectID]wire.ObjectRef)}
}

// Remember registers handle under its target-minted ID and returns the
// handle unchanged. It is idempotent: remembering the same ID twice keeps
// the first handle recorded for it rather than overwriting, matching the
// "same ID must resolve consistently" requirement.
func (c *Cache) Remember(handle wire.ObjectRef) wire.ObjectRef {
	if handle == nil {
		return handle
	}
	id := handle.ID()
	if existing, ok := c.byID[id]; ok {
		return existing
	}
	c.byID[id] = handle
	return handle
}

// Lookup returns the handle remembered under id, if any.
func (c *Cache) Lookup(id wire.ObjectID) (wire.ObjectRef, bool) {
	h, ok := c.byID[id]
	return h, ok
}

// Clear drops every remembered handle; called when a Session ends, since
// any Object ID it minted becomes invalid.
func (c *Cache) Clear() {
	c.byID = make(map[wire.ObjectID]wire.ObjectRef)
}

// Len reports how many objects are currently remembered, useful for tests
// and diagnostics only.
func (c *Cache) Len() int {
	return len(c.byID)
}
