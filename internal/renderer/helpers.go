package renderer

// Unwind collects cleanups for a partially completed initialisation and
// runs them in reverse order on failure.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = nil
}

// Discard forgets the cleanups once initialisation succeeded.
func (u *Unwind) Discard() {
	*u = (*u)[:0]
}
