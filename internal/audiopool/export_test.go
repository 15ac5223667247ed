package audiopool

// SetMover swaps the file move used by Retire.
func SetMover(p *Pool, move func(src, dst string) error) {
	p.move = move
}
