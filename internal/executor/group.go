package executor

import "sync"

// taskGroup dispatches N tasks and waits for all of them.
type taskGroup struct {
	wg  sync.WaitGroup
	sem chan struct{}
}

func newTaskGroup(limit int) *taskGroup {
	g := &taskGroup{}
	if limit > 0 {
		g.sem = make(chan struct{}, limit)
	}
	return g
}

func (g *taskGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if g.sem != nil {
			g.sem <- struct{}{}
			defer func() { <-g.sem }()
		}
		fn()
	}()
}

func (g *taskGroup) Wait() {
	g.wg.Wait()
}
