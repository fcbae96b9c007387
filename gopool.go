// Refer to https://www.zhihu.com/question/486002075/answer/2823943072
package nex

// GoPool is a fixed-size, reusable worker pool for offloading blocking work
// (a slow backend call, disk I/O) out of a connection's callback so it
// never blocks that connection's EventLoop goroutine. M:N model: M
// reusable goroutines draining an N-deep work queue.
type GoPool struct {
	noCopy

	sem  chan struct{}
	work chan func()
}

// NewGoPool creates a pool of at most sizeM goroutines, preSpawn of them
// started immediately, backed by a work queue of depth queueN.
func NewGoPool(sizeM, preSpawn, queueN int) *GoPool {
	if preSpawn <= 0 && queueN > 0 {
		panic("GoPool: dead queue")
	}
	if preSpawn > sizeM {
		preSpawn = sizeM
	}
	p := &GoPool{
		sem:  make(chan struct{}, sizeM),
		work: make(chan func(), queueN),
	}
	for i := 0; i < preSpawn; i++ {
		p.sem <- struct{}{}
		go p.worker(func() {})
	}
	return p
}

// Go submits task to the work queue, or to a newly spawned worker if the
// pool hasn't hit sizeM yet. When both are possible, the choice between
// them is random (select); it blocks while the queue is full and the pool
// is at sizeM.
func (p *GoPool) Go(task func()) {
	select {
	case p.work <- task:
	case p.sem <- struct{}{}:
		go p.worker(task)
	}
}

func (p *GoPool) worker(task func()) {
	defer func() { <-p.sem }()

	for {
		task()
		task = <-p.work
	}
}
