package comm

// Serial is the single-process communicator. Every collective degenerates to
// the identity, so algorithms written against Communicator run unchanged in
// serial mode.
type Serial struct{}

// NewSerial returns a size-1 communicator.
func NewSerial() Serial { return Serial{} }

func (Serial) Rank() int { return 0 }

func (Serial) Size() int { return 1 }

func (Serial) SumInt(v int) int { return v }

func (Serial) AllGatherInt(v int) []int { return []int{v} }

func (Serial) Exchange(send []any) []any {
	recv := make([]any, 1)
	if len(send) > 0 {
		recv[0] = send[0]
	}
	return recv
}
