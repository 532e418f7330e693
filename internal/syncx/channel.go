package syncx

// UnboundedChan never blocks its sender: values that the receiver has not
// taken yet are queued in memory. Closing In drains the queue to Out and
// then closes Out.
type UnboundedChan[T any] struct {
	in  chan<- T
	out <-chan T
}

func (c UnboundedChan[T]) In() chan<- T {
	return c.in
}

func (c UnboundedChan[T]) Out() <-chan T {
	return c.out
}

// Close stops accepting values. Out is closed once the backlog is delivered.
func (c UnboundedChan[T]) Close() {
	close(c.in)
}

func NewUnboundedChan[T any](capacity int) UnboundedChan[T] {
	in := make(chan T, capacity)
	out := make(chan T, capacity)
	go forward(in, out, capacity)
	return UnboundedChan[T]{in: in, out: out}
}

func forward[T any](in <-chan T, out chan<- T, capacity int) {
	defer close(out)
	var backlog []T

	for {
		if len(backlog) == 0 {
			v, ok := <-in
			if !ok {
				return
			}
			select {
			case out <- v:
			default:
				backlog = append(backlog, v)
			}
			continue
		}

		select {
		case v, ok := <-in:
			if !ok {
				for _, b := range backlog {
					out <- b
				}
				return
			}
			backlog = append(backlog, v)
		case out <- backlog[0]:
			backlog = backlog[1:]
			if len(backlog) == 0 {
				// release the old backing array
				backlog = make([]T, 0, capacity)
			}
		}
	}
}
