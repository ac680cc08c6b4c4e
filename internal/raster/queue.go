package raster

import "container/heap"

// DrawItem is one pending draw call
type DrawItem struct {
	Vertices []Vertex
	Indices  []uint16
	Options  DrawOptions
	// Depth orders the queue; larger draws first
	Depth float64
	index int
}

// DrawQueue is a max-heap on Depth, giving back-to-front order
type DrawQueue []*DrawItem

func (q DrawQueue) Len() int { return len(q) }

func (q DrawQueue) Less(i, j int) bool {
	// Farthest first
	return q[i].Depth > q[j].Depth
}

func (q DrawQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *DrawQueue) Push(x interface{}) {
	n := len(*q)
	item := x.(*DrawItem)
	item.index = n
	*q = append(*q, item)
}

func (q *DrawQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[0 : n-1]
	return item
}

// Enqueue adds an item keeping heap order
func (q *DrawQueue) Enqueue(item *DrawItem) {
	heap.Push(q, item)
}

// Flush draws every item back to front and empties the queue
func (q *DrawQueue) Flush(dev Device) error {
	for q.Len() > 0 {
		item := heap.Pop(q).(*DrawItem)
		if err := dev.DrawTriangles(item.Vertices, item.Indices, &item.Options); err != nil {
			*q = (*q)[:0]
			return err
		}
	}
	return nil
}
