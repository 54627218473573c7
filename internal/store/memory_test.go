package store

import (
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore(0)
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	if len(store.All()) != 0 {
		t.Errorf("All() = %v items, want 0", len(store.All()))
	}
	if store.capacity != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", store.capacity, DefaultCapacity)
	}
	if _, ok := store.Latest(); ok {
		t.Error("Latest() ok = true on empty store")
	}
}

func TestMemoryStore_AddKeepsOrder(t *testing.T) {
	store := NewMemoryStore(10)

	store.Add(Record{Timestamp: "2024-05-01 10:00:00", APIName: "api", AvailableAgents: "1"})
	store.Add(Record{Timestamp: "2024-05-01 10:15:00", APIName: "api", AvailableAgents: "2"})
	store.Add(Record{Timestamp: "2024-05-01 10:30:00", APIName: "api", AvailableAgents: "Connection Error", Failed: true})

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("All() = %v items, want 3", len(all))
	}
	for i, want := range []string{"1", "2", "Connection Error"} {
		if all[i].AvailableAgents != want {
			t.Errorf("All()[%d].AvailableAgents = %q, want %q", i, all[i].AvailableAgents, want)
		}
	}

	latest, ok := store.Latest()
	if !ok || !latest.Failed {
		t.Errorf("Latest() = %+v, %v, want failed record", latest, ok)
	}
}

func TestMemoryStore_CapacityDropsOldest(t *testing.T) {
	store := NewMemoryStore(3)

	for i := 0; i < 5; i++ {
		store.Add(Record{AvailableAgents: fmt.Sprint(i)})
	}

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("All() = %v items, want 3", len(all))
	}
	if all[0].AvailableAgents != "2" || all[2].AvailableAgents != "4" {
		t.Errorf("All() = %+v, want records 2..4", all)
	}
}

func TestMemoryStore_AllIsSnapshot(t *testing.T) {
	store := NewMemoryStore(10)
	store.Add(Record{AvailableAgents: "1"})

	all := store.All()
	all[0].AvailableAgents = "changed"

	if store.All()[0].AvailableAgents != "1" {
		t.Error("modifying All() result changed the store")
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore(10)

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Add(Record{APIName: "Test", AvailableAgents: "3"})
	}()

	select {
	case rec := <-ch:
		if rec.APIName != "Test" {
			t.Errorf("received APIName = %v, want %v", rec.APIName, "Test")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore(10)

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	go func() {
		store.Add(Record{APIName: "Test"})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore(10)

	ch := store.Subscribe()
	store.Unsubscribe(ch)
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore(10)

	// create a subscriber but don't read from it
	_ = store.Subscribe()

	done := make(chan bool)
	go func() {
		for i := 0; i < 200; i++ {
			store.Add(Record{APIName: "Test"})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Add() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(50)

	var wg sync.WaitGroup
	numGoroutines := 10
	numUpdates := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				store.Add(Record{APIName: "API"})
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				_ = store.All()
				_, _ = store.Latest()
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()

	if got := len(store.All()); got != 50 {
		t.Errorf("All() = %d items, want capacity 50", got)
	}
}

func TestMemoryStore_SubscribeLatest(t *testing.T) {
	store := NewMemoryStore(10)

	ch, _, ok := store.SubscribeLatest()
	if ok {
		t.Error("SubscribeLatest() ok = true on empty store")
	}
	store.Unsubscribe(ch)

	store.Add(Record{APIName: "API", AvailableAgents: "3"})

	ch, latest, ok := store.SubscribeLatest()
	defer store.Unsubscribe(ch)
	if !ok || latest.AvailableAgents != "3" {
		t.Fatalf("SubscribeLatest() = %+v, %v, want record 3", latest, ok)
	}

	store.Add(Record{APIName: "API", AvailableAgents: "4"})

	select {
	case rec := <-ch:
		if rec.AvailableAgents != "4" {
			t.Errorf("received %+v, want record 4", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("channel did not receive update")
	}
}

func TestMemoryStore_SubscribeLatestConcurrentAdds(t *testing.T) {
	store := NewMemoryStore(100)
	const total = 50

	start := make(chan struct{})
	go func() {
		<-start
		for i := 1; i <= total; i++ {
			store.Add(Record{APIName: "API", AvailableAgents: strconv.Itoa(i)})
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			ch, latest, ok := store.SubscribeLatest()
			defer store.Unsubscribe(ch)

			next := 1
			if ok {
				n, _ := strconv.Atoi(latest.AvailableAgents)
				next = n + 1
			}

			// every later record arrives once, in order
			for ; next <= total; next++ {
				select {
				case rec := <-ch:
					if rec.AvailableAgents != strconv.Itoa(next) {
						errs <- fmt.Errorf("received %q, want %d", rec.AvailableAgents, next)
						return
					}
				case <-time.After(2 * time.Second):
					errs <- fmt.Errorf("timeout waiting for record %d", next)
					return
				}
			}

			select {
			case rec := <-ch:
				errs <- fmt.Errorf("unexpected extra record %q", rec.AvailableAgents)
			default:
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
