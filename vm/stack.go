package vm

// Stack is the operand stack of the machine.
type Stack struct {
	Data []int64
}

func (s *Stack) Push(value int64) {
	s.Data = append(s.Data, value)
}

func (s *Stack) Pop() (value int64, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

func (s *Stack) Len() int {
	return len(s.Data)
}

func (s *Stack) Peek() (value int64, ok bool) {
	return s.At(0)
}

// At returns the value depth entries below the top, where 0 is the top.
func (s *Stack) At(depth int64) (value int64, ok bool) {
	if depth < 0 || depth >= int64(len(s.Data)) {
		return
	}

	return s.Data[int64(len(s.Data))-1-depth], true
}

// Swap exchanges the top two entries.
func (s *Stack) Swap() (ok bool) {
	n := len(s.Data)
	if n < 2 {
		return
	}

	s.Data[n-1], s.Data[n-2] = s.Data[n-2], s.Data[n-1]
	return true
}

func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}
