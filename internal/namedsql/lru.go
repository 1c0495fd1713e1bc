package namedsql

import "sync"

// lruNode is a doubly-linked list node with freelist support.
type lruNode struct {
	sql  string
	q    *Query
	prev *lruNode
	next *lruNode
}

// lruCache holds the most recently used parsed queries. It is safe for
// concurrent use.
type lruCache struct {
	mu sync.Mutex

	m    map[string]*lruNode
	head *lruNode
	tail *lruNode
	len  int
	cap  int

	freelist *lruNode
}

func newLRUCache(cap int) *lruCache {
	head := &lruNode{}
	tail := &lruNode{}
	head.next = tail
	tail.prev = head

	return &lruCache{
		cap:  cap,
		m:    make(map[string]*lruNode, cap),
		head: head,
		tail: tail,
	}
}

// get returns the query parsed from sql or nil if not found.
func (c *lruCache) get(sql string) *Query {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.m[sql]
	if !ok {
		return nil
	}
	c.moveToFront(node)
	return node.q
}

// put stores q under sql, evicting the least recently used query when the
// cache is full. put does nothing if sql is already present.
func (c *lruCache) put(sql string, q *Query) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, present := c.m[sql]; present {
		return
	}

	if c.len == c.cap {
		c.evictOldest()
	}

	node := c.allocNode()
	node.sql = sql
	node.q = q
	c.insertAfter(c.head, node)
	c.m[sql] = node
	c.len++
}

// size returns the number of cached queries.
func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.len
}

func (c *lruCache) evictOldest() {
	node := c.tail.prev
	if node == c.head {
		return
	}
	delete(c.m, node.sql)
	c.unlink(node)
	c.len--
	c.freeNode(node)
}

func (c *lruCache) moveToFront(node *lruNode) {
	if c.head.next == node {
		return
	}
	c.unlink(node)
	c.insertAfter(c.head, node)
}

func (c *lruCache) insertAfter(at, node *lruNode) {
	node.prev = at
	node.next = at.next
	at.next.prev = node
	at.next = node
}

func (c *lruCache) unlink(node *lruNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (c *lruCache) allocNode() *lruNode {
	if c.freelist != nil {
		node := c.freelist
		c.freelist = node.next
		node.next = nil
		node.prev = nil
		return node
	}
	return &lruNode{}
}

func (c *lruCache) freeNode(node *lruNode) {
	node.sql = ""
	node.q = nil
	node.prev = nil
	node.next = c.freelist
	c.freelist = node
}
