package session

// SaveTask is the pending outcome of the save a mutation started
type SaveTask struct {
	done chan struct{}
	err  error
}

func newSaveTask() *SaveTask {
	return &SaveTask{done: make(chan struct{})}
}

func (t *SaveTask) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed once the save has finished
func (t *SaveTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the save finishes and returns its error
func (t *SaveTask) Wait() error {
	<-t.done
	return t.err
}

// Err returns the save error, or nil while the save is still running
func (t *SaveTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
