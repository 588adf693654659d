package performance

// LRUList tracks recency of integer keys for cache eviction
type LRUList struct {
	head  *LRUNode
	tail  *LRUNode
	nodes map[int]*LRUNode
}

// LRUNode represents a node in the LRU list
type LRUNode struct {
	key  int
	prev *LRUNode
	next *LRUNode
}

// NewLRUList creates an empty list
func NewLRUList() *LRUList {
	lru := &LRUList{
		nodes: make(map[int]*LRUNode),
	}
	lru.head = &LRUNode{}
	lru.tail = &LRUNode{}
	lru.head.next = lru.tail
	lru.tail.prev = lru.head
	return lru
}

// Add inserts key as most recently used, or refreshes it
func (lru *LRUList) Add(key int) {
	if node, exists := lru.nodes[key]; exists {
		lru.moveToFront(node)
		return
	}

	node := &LRUNode{key: key}
	lru.nodes[key] = node
	lru.addToFront(node)
}

// Access marks key as most recently used if present
func (lru *LRUList) Access(key int) {
	if node, exists := lru.nodes[key]; exists {
		lru.moveToFront(node)
	}
}

// Remove drops key
func (lru *LRUList) Remove(key int) {
	if node, exists := lru.nodes[key]; exists {
		lru.removeNode(node)
		delete(lru.nodes, key)
	}
}

// RemoveLRU evicts and returns the least recently used key
func (lru *LRUList) RemoveLRU() (int, bool) {
	if lru.tail.prev == lru.head {
		return 0, false
	}

	last := lru.tail.prev
	lru.removeNode(last)
	delete(lru.nodes, last.key)
	return last.key, true
}

// Len returns the number of tracked keys
func (lru *LRUList) Len() int {
	return len(lru.nodes)
}

func (lru *LRUList) moveToFront(node *LRUNode) {
	lru.removeNode(node)
	lru.addToFront(node)
}

func (lru *LRUList) addToFront(node *LRUNode) {
	node.next = lru.head.next
	node.prev = lru.head
	lru.head.next.prev = node
	lru.head.next = node
}

func (lru *LRUList) removeNode(node *LRUNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
