//go:build unix

package pool

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/momentics/cnet/api"
	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"pgregory.net/rapid"
)

func TestFDPool_Basic(t *testing.T) {
	p := New()
	defer p.Free()

	p.Register(1, api.ProtocolTCP)
	assert.Equal(t, p.Count(api.ProtocolTCP), 1)
	assert.Equal(t, p.Count(api.ProtocolUDP), 0)
	p.Register(371, api.ProtocolTCP)
	assert.Equal(t, p.Count(api.ProtocolTCP), 2)
	assert.Equal(t, p.Count(api.ProtocolUDP), 0)

	p.Register(1, api.ProtocolUDP)
	assert.Equal(t, p.Count(api.ProtocolTCP), 2)
	assert.Equal(t, p.Count(api.ProtocolUDP), 1)
	p.Register(361, api.ProtocolUDP)
	assert.Equal(t, p.Count(api.ProtocolUDP), 2)

	assert.Check(t, p.IsSet(1, api.ProtocolTCP))
	assert.Check(t, !p.IsSet(344, api.ProtocolTCP))
	assert.Check(t, p.IsSet(1, api.ProtocolUDP))
	assert.Check(t, !p.IsSet(344, api.ProtocolUDP))
	assert.Check(t, !p.IsSet(-1, api.ProtocolUDP))
	assert.Check(t, !p.IsSet(MaxTracked, api.ProtocolUDP))

	buf := make([]int, 10)
	assert.Equal(t, p.All(api.ProtocolTCP, buf[:2]), 2)
	assert.Check(t, is.DeepEqual(buf[:2], []int{1, 371}))
	assert.Equal(t, p.All(api.ProtocolUDP, buf), 2)
	assert.Check(t, is.DeepEqual(buf[:2], []int{1, 361}))
}

func TestFDPool_ScenarioA(t *testing.T) {
	p := New()
	defer p.Free()

	for _, fd := range []int{1, 5, 10} {
		p.Register(fd, api.ProtocolTCP)
	}
	for _, fd := range []int{100, 150, 200} {
		p.Register(fd, api.ProtocolUDP)
	}
	assert.Check(t, is.DeepEqual(p.Enumerate(api.ProtocolTCP, 10), []int{1, 5, 10}))
	assert.Check(t, is.DeepEqual(p.Enumerate(api.ProtocolUDP, 10), []int{100, 150, 200}))
	assert.Equal(t, p.Count(api.ProtocolTCP), 3)
	assert.Equal(t, p.Count(api.ProtocolUDP), 3)
}

func TestFDPool_EnumerateTruncates(t *testing.T) {
	p := New()
	defer p.Free()

	for _, fd := range []int{900, 3, 77, 12} {
		p.Register(fd, api.ProtocolTCP)
	}
	assert.Check(t, is.DeepEqual(p.Enumerate(api.ProtocolTCP, 2), []int{3, 12}))
	assert.Check(t, is.Len(p.Enumerate(api.ProtocolTCP, 0), 0))
	assert.Check(t, is.Len(p.Enumerate(api.ProtocolUDP, 5), 0))
}

func TestFDPool_DuplicateRegisterCountsTwice(t *testing.T) {
	p := New()
	defer p.Free()

	p.Register(7, api.ProtocolTCP)
	p.Register(7, api.ProtocolTCP)
	assert.Equal(t, p.Count(api.ProtocolTCP), 2)
	assert.Check(t, is.DeepEqual(p.Enumerate(api.ProtocolTCP, 10), []int{7}))
}

func TestFDPool_RegisterOutOfRangePanics(t *testing.T) {
	p := New()
	defer p.Free()

	for _, fd := range []int{-1, MaxTracked, MaxTracked + 10} {
		func() {
			defer func() {
				r := recover()
				assert.Assert(t, r != nil, "fd %d should panic", fd)
				err, ok := r.(error)
				assert.Assert(t, ok)
				assert.Check(t, api.IsContractViolation(err))
			}()
			p.Register(fd, api.ProtocolTCP)
		}()
	}
	assert.Equal(t, p.Count(api.ProtocolTCP), 0)
}

func TestFDPool_Free(t *testing.T) {
	p := New()
	p.Register(4, api.ProtocolTCP)
	p.Register(5, api.ProtocolUDP)
	p.Free()
	assert.Equal(t, p.Count(api.ProtocolTCP), 0)
	assert.Equal(t, p.Count(api.ProtocolUDP), 0)
	assert.Check(t, !p.IsSet(4, api.ProtocolTCP))
	assert.Check(t, !p.IsSet(5, api.ProtocolUDP))
}

func TestFDPool_ProtocolIsolationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fd := rapid.IntRange(0, MaxTracked-1)
		tcp := rapid.SliceOf(fd).Draw(t, "tcp")
		udp := rapid.SliceOf(fd).Draw(t, "udp")

		p := New()
		defer p.Free()
		for _, d := range tcp {
			p.Register(d, api.ProtocolTCP)
		}
		for _, d := range udp {
			p.Register(d, api.ProtocolUDP)
		}

		if got := p.Count(api.ProtocolTCP); got != len(tcp) {
			t.Fatalf("tcp count %d, want %d", got, len(tcp))
		}
		if got := p.Count(api.ProtocolUDP); got != len(udp) {
			t.Fatalf("udp count %d, want %d", got, len(udp))
		}

		inUDP := make(map[int]bool, len(udp))
		for _, d := range udp {
			inUDP[d] = true
		}
		for _, d := range tcp {
			if !p.IsSet(d, api.ProtocolTCP) {
				t.Fatalf("fd %d missing from tcp", d)
			}
			if p.IsSet(d, api.ProtocolUDP) != inUDP[d] {
				t.Fatalf("fd %d leaked into udp", d)
			}
		}
	})
}

func TestFDPool_EnumerationOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fds := rapid.SliceOf(rapid.IntRange(0, MaxTracked-1)).Draw(t, "fds")
		max := rapid.IntRange(1, 64).Draw(t, "max")

		p := New()
		defer p.Free()
		uniq := make(map[int]struct{})
		for _, d := range fds {
			p.Register(d, api.ProtocolUDP)
			uniq[d] = struct{}{}
		}
		want := make([]int, 0, len(uniq))
		for d := range uniq {
			want = append(want, d)
		}
		sort.Ints(want)
		if len(want) > max {
			want = want[:max]
		}

		got := p.Enumerate(api.ProtocolUDP, max)
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
			if i > 0 && got[i] <= got[i-1] {
				t.Fatalf("not strictly ascending: %v", got)
			}
		}
	})
}

func TestFDPool_ConcurrentRegisterVisibleEverywhere(t *testing.T) {
	p := New()
	defer p.Free()

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for fd := w; fd < MaxTracked; fd += workers {
				proto := api.ProtocolTCP
				if fd%2 == 1 {
					proto = api.ProtocolUDP
				}
				p.Register(fd, proto)
				if !p.IsSet(fd, proto) {
					t.Errorf("fd %d not visible after register", fd)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, p.Count(api.ProtocolTCP), MaxTracked/2)
	assert.Equal(t, p.Count(api.ProtocolUDP), MaxTracked/2)
	assert.Check(t, is.Len(p.Enumerate(api.ProtocolTCP, MaxTracked), MaxTracked/2))
}

func TestFDPool_PartitionsDoNotBlockEachOther(t *testing.T) {
	p := New()
	defer p.Free()
	p.Register(3, api.ProtocolUDP)

	// A writer parked on the TCP partition.
	p.tcp.mu.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.IsSet(3, api.ProtocolUDP)
		_ = p.Enumerate(api.ProtocolUDP, 4)
		p.Register(9, api.ProtocolUDP)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("udp operations blocked behind tcp writer")
	}
	p.tcp.mu.Unlock()
	assert.Check(t, p.IsSet(9, api.ProtocolUDP))
}

func pipe(t *testing.T) (r, w int) {
	t.Helper()
	fds := make([]int, 2)
	assert.NilError(t, unix.Pipe(fds))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestFDPool_ActiveReadiness(t *testing.T) {
	p := New()
	defer p.Free()
	r, w := pipe(t)

	var out unix.FdSet
	n, err := p.Active(api.ProtocolTCP, api.DirectionRead, &out)
	assert.NilError(t, err)
	assert.Equal(t, n, 0, "empty partition")

	p.Register(r, api.ProtocolTCP)
	p.Register(w, api.ProtocolUDP)

	n, err = p.Active(api.ProtocolTCP, api.DirectionRead, &out)
	assert.NilError(t, err)
	assert.Equal(t, n, 0, "nothing written yet")

	n, err = p.Active(api.ProtocolUDP, api.DirectionWrite, &out)
	assert.NilError(t, err)
	assert.Equal(t, n, 1)
	assert.Check(t, out.IsSet(w))

	_, err = unix.Write(w, []byte("x"))
	assert.NilError(t, err)

	ready, err := p.Ready(api.ProtocolTCP, api.DirectionRead)
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(ready, []int{r}))
}

func TestFDPool_ActiveFailureIsTransient(t *testing.T) {
	p := New()
	defer p.Free()

	fds := make([]int, 2)
	assert.NilError(t, unix.Pipe(fds))
	p.Register(fds[0], api.ProtocolTCP)
	unix.Close(fds[0])
	unix.Close(fds[1])

	// The pool still tracks the closed descriptor, so the wait fails.
	var out unix.FdSet
	n, err := p.Active(api.ProtocolTCP, api.DirectionRead, &out)
	assert.Equal(t, n, -1)
	assert.Check(t, api.IsTransient(err))
	assert.Check(t, errors.Is(err, unix.EBADF))
}

func TestFDPool_WaitDoesNotHoldLock(t *testing.T) {
	p := New(WithPollTimeout(300 * time.Millisecond))
	defer p.Free()
	r, _ := pipe(t)
	p.Register(r, api.ProtocolTCP)

	started := make(chan struct{})
	waited := make(chan struct{})
	go func() {
		close(started)
		var out unix.FdSet
		_, _ = p.Active(api.ProtocolTCP, api.DirectionRead, &out)
		close(waited)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	begin := time.Now()
	p.Register(r+1, api.ProtocolTCP)
	assert.Check(t, time.Since(begin) < 150*time.Millisecond, "register waited for select")
	<-waited
}
