package gateway

import (
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/rrgate/internal/driver"
)

func TestCreateOrderedLock_LocalHandles(t *testing.T) {
	g, _, _ := inactive()

	a := g.CreateOrderedLock("a")
	b := g.CreateOrderedLock("b")
	again := g.CreateOrderedLock("a")

	assert.Equal(t, OrderedLock(1), a)
	assert.Equal(t, OrderedLock(2), b)
	assert.Equal(t, OrderedLock(3), again, "each call mints a fresh handle")
	assert.Equal(t, "b", g.LockName(b))
	assert.Empty(t, g.LockName(OrderedLock(99)))

	// Acquisitions without a driver are no-ops.
	main := g.MainThread()
	main.OrderedLock(a)
	main.OrderedUnlock(a)
}

func TestCreateOrderedLock_DriverHandles(t *testing.T) {
	f := record(t)

	a := f.g.CreateOrderedLock("a")
	b := f.g.CreateOrderedLock("b")
	assert.Equal(t, OrderedLock(1), a)
	assert.Equal(t, OrderedLock(2), b)
	assert.Equal(t, 2, f.calls.Count(driver.SymCreateOrderedLock))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(f.g.metrics.locksCreated))
}

func TestOrderedMutex(t *testing.T) {
	f := record(t)
	m := f.g.NewOrderedMutex("counter")
	assert.Equal(t, "counter", m.Name())
	assert.Equal(t, "counter", f.g.LockName(m.Handle()))

	const workers, rounds = 4, 25
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		th := f.g.NewThread("worker")
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				m.Lock(th)
				counter++
				m.Unlock(th)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*rounds, counter)
	assert.Equal(t, workers*rounds, f.calls.Count(driver.SymOrderedLock))
	assert.Equal(t, workers*rounds, f.calls.Count(driver.SymOrderedUnlock))
	assert.Equal(t, float64(workers*rounds), promtestutil.ToFloat64(f.g.metrics.lockAcquisitions))
}

func TestAddOrderedNativeLock(t *testing.T) {
	f := record(t)
	var mu sync.Mutex
	f.g.AddOrderedNativeLock(driver.LockKindPthreadMutex, "heap", &mu)
	assert.Equal(t, map[string]driver.LockKind{"heap": driver.LockKindPthreadMutex}, f.drv.NativeLocks())

	g, _, _ := inactive()
	assert.NotPanics(t, func() { g.AddOrderedNativeLock(driver.LockKindPthreadMutex, "heap", &mu) })
}
