package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jscyril/golang_playback_engine/api"
	playerrors "github.com/jscyril/golang_playback_engine/pkg/errors"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	for i := uint32(0); i < 5; i++ {
		if err := q.Send(api.Command{Type: api.CmdSetVolume, Volume: i}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", q.Len())
	}

	ctx := context.Background()
	for i := uint32(0); i < 5; i++ {
		cmd, ok := q.Receive(ctx)
		if !ok {
			t.Fatal("Receive() returned false")
		}
		if cmd.Volume != i {
			t.Errorf("command %d carried volume %d", i, cmd.Volume)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueueReceiveBlocksUntilSend(t *testing.T) {
	q := NewQueue()
	got := make(chan api.Command, 1)

	go func() {
		cmd, ok := q.Receive(context.Background())
		if ok {
			got <- cmd
		}
	}()

	select {
	case <-got:
		t.Fatal("Receive() returned before any Send")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.Send(api.Command{Type: api.CmdStop}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case cmd := <-got:
		if cmd.Type != api.CmdStop {
			t.Errorf("Receive() = %v, want stop", cmd.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive() did not wake after Send")
	}
}

func TestQueuePerProducerOrder(t *testing.T) {
	const producers = 4
	const perProducer = 200

	q := NewQueue()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Send(api.Command{Type: api.CmdSetVolume, Volume: uint32(p*perProducer + i)})
			}
		}(p)
	}
	wg.Wait()
	q.Close()

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	count := 0
	for {
		cmd, ok := q.Receive(context.Background())
		if !ok {
			break
		}
		count++
		p, i := int(cmd.Volume)/perProducer, int(cmd.Volume)%perProducer
		if i <= last[p] {
			t.Fatalf("producer %d: command %d received after %d", p, i, last[p])
		}
		last[p] = i
	}
	if count != producers*perProducer {
		t.Errorf("received %d commands, want %d", count, producers*perProducer)
	}
}

func TestQueueCloseDrainsPending(t *testing.T) {
	q := NewQueue()
	q.Send(api.Command{Type: api.CmdSetVolume, Volume: 1})
	q.Send(api.Command{Type: api.CmdSetVolume, Volume: 2})
	q.Close()
	q.Close()

	if err := q.Send(api.Command{Type: api.CmdStop}); !errors.Is(err, playerrors.ErrEngineStopped) {
		t.Errorf("Send() after Close error = %v, want ErrEngineStopped", err)
	}

	ctx := context.Background()
	for _, want := range []uint32{1, 2} {
		cmd, ok := q.Receive(ctx)
		if !ok || cmd.Volume != want {
			t.Fatalf("Receive() = %v, %v; want volume %d", cmd.Volume, ok, want)
		}
	}
	if _, ok := q.Receive(ctx); ok {
		t.Error("Receive() on closed empty queue should return false")
	}
}

func TestQueueCloseWakesReceiver(t *testing.T) {
	q := NewQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Receive(context.Background())
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Receive() should report closure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Receive() did not wake on Close")
	}
}

func TestQueueReceiveContextCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Receive(ctx); ok {
		t.Error("Receive() with canceled context should return false")
	}
}
