package trial

import "github.com/llxisdsh/pb"

// FlatMap adapts pb's open-addressing FlatMapOf to rehash.Map. It is the
// baseline the chained tables are timed against.
type FlatMap struct {
	m *pb.FlatMapOf[string, string]
}

func NewFlatMap() *FlatMap {
	return &FlatMap{m: pb.NewFlatMapOf[string, string]()}
}

func (f *FlatMap) Get(k string) (string, bool) { return f.m.Load(k) }

func (f *FlatMap) Put(k, v string) { f.m.Store(k, v) }

func (f *FlatMap) Remove(k string) (string, bool) {
	v, ok := f.m.Load(k)
	if ok {
		f.m.Delete(k)
	}
	return v, ok
}

func (f *FlatMap) Len() int { return f.m.Size() }
