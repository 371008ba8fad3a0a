package scoring

// HeldLocks reports how many entry locks the engine is tracking.
func HeldLocks(e *Engine) int {
	return e.locks.Size()
}
