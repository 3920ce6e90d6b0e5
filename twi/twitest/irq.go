package twitest

// SetHandler sets the interrupt handler used by Step and Run.
func (d *Device) SetHandler(h func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = h
}

// Start delivers interrupts to h from a background goroutine, the way the
// hardware would preempt the foreground. Stop ends it.
func (d *Device) Start(h func()) {
	d.SetHandler(h)
	d.done = make(chan struct{})
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.done:
				return
			case <-d.wake:
			}
			for d.ready() {
				h()
			}
		}
	}()
}

// Stop ends interrupt delivery started by Start.
func (d *Device) Stop() {
	if d.done == nil {
		return
	}
	close(d.done)
	d.wg.Wait()
	d.done = nil
}

// Pending reports whether an interrupt is due.
func (d *Device) Pending() bool {
	return d.ready()
}

// Step delivers one interrupt to the handler set with SetHandler, if one
// is due.
func (d *Device) Step() bool {
	if !d.ready() {
		return false
	}
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	h()
	return true
}

// Run delivers interrupts until none is due and returns how many ran.
func (d *Device) Run() int {
	n := 0
	for d.Step() {
		n++
	}
	return n
}
