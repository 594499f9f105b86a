package rehash

// entry is a chain node. The bucket slot or the preceding entry owns it.
type entry[K comparable, V any] struct {
	key   K
	value V
	next  *entry[K, V]
}
