package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/relabs/matchcast/internal/domain"
)

func TestGetOrCreateIdempotent(t *testing.T) {
	table := NewMatchTable()
	a := table.GetOrCreate("m1")
	b := table.GetOrCreate("m1")
	if a != b {
		t.Fatal("GetOrCreate returned different entries for the same id")
	}
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	table := NewMatchTable()
	entries := make([]*MatchEntry, 16)
	var wg sync.WaitGroup
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i] = table.GetOrCreate("m1")
		}(i)
	}
	wg.Wait()
	for i, e := range entries {
		if e != entries[0] {
			t.Fatalf("entry %d differs from entry 0", i)
		}
	}
}

func TestRemoveOnlyWhenEmpty(t *testing.T) {
	table := NewMatchTable()
	e := table.GetOrCreate("m1")
	e.AddTransport(&TransportHandle{ID: "t1", Match: "m1"})

	if table.Remove("m1") {
		t.Fatal("Remove succeeded on a non-empty entry")
	}
	if _, ok := table.Get("m1"); !ok {
		t.Fatal("entry vanished after refused Remove")
	}

	e.TakeTransport("t1")
	if !table.Remove("m1") {
		t.Fatal("Remove failed on an empty entry")
	}
	if _, ok := table.Get("m1"); ok {
		t.Fatal("entry still present after Remove")
	}
	// Removing a nonexistent entry is a no-op.
	if table.Remove("m1") {
		t.Fatal("Remove reported success on a nonexistent entry")
	}
}

func TestTakeSemantics(t *testing.T) {
	e := newMatchEntry("m1")
	e.AddTransport(&TransportHandle{ID: "t1", Match: "m1"})
	if !e.AddProducer(&ProducerHandle{ID: "p1", Match: "m1", Transport: "t1"}) {
		t.Fatal("AddProducer refused a live transport")
	}

	if _, ok := e.TakeProducer("p1"); !ok {
		t.Fatal("first take failed")
	}
	if _, ok := e.TakeProducer("p1"); ok {
		t.Fatal("second take observed the handle")
	}
}

func TestAddProducerRequiresLiveTransport(t *testing.T) {
	e := newMatchEntry("m1")
	if e.AddProducer(&ProducerHandle{ID: "p1", Transport: "t1"}) {
		t.Fatal("AddProducer accepted an unknown transport")
	}

	e.AddTransport(&TransportHandle{ID: "t1"})
	e.BeginTransportClose("t1")
	if e.AddProducer(&ProducerHandle{ID: "p1", Transport: "t1"}) {
		t.Fatal("AddProducer accepted a transport claimed for close")
	}
	if _, ok := e.Producer("p1"); ok {
		t.Fatal("rejected producer still registered")
	}
}

func TestAddConsumerRequiresLiveDependencies(t *testing.T) {
	e := newMatchEntry("m1")
	e.AddTransport(&TransportHandle{ID: "t1"})

	if e.AddConsumer(&ConsumerHandle{ID: "c1", Transport: "t1", Producer: "p1"}) {
		t.Fatal("AddConsumer accepted an unknown producer")
	}

	e.AddProducer(&ProducerHandle{ID: "p1", Transport: "t1"})
	if !e.AddConsumer(&ConsumerHandle{ID: "c1", Transport: "t1", Producer: "p1"}) {
		t.Fatal("AddConsumer refused live dependencies")
	}

	e.TakeProducer("p1")
	if e.AddConsumer(&ConsumerHandle{ID: "c2", Transport: "t1", Producer: "p1"}) {
		t.Fatal("AddConsumer accepted a taken producer")
	}

	e.AddProducer(&ProducerHandle{ID: "p2", Transport: "t1"})
	e.BeginTransportClose("t1")
	if e.AddConsumer(&ConsumerHandle{ID: "c3", Transport: "t1", Producer: "p2"}) {
		t.Fatal("AddConsumer accepted a transport claimed for close")
	}
}

func TestProducersInOrder(t *testing.T) {
	e := newMatchEntry("m1")
	e.AddTransport(&TransportHandle{ID: "t1"})
	for i := 0; i < 5; i++ {
		e.AddProducer(&ProducerHandle{ID: domain.ProducerID(fmt.Sprintf("p%d", i)), Transport: "t1"})
	}
	got := e.ProducersInOrder()
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i, p := range got {
		want := domain.ProducerID(fmt.Sprintf("p%d", i))
		if p.ID != want {
			t.Fatalf("position %d: got %s, want %s", i, p.ID, want)
		}
	}
}

func TestBeginTransportCloseClaimsOnce(t *testing.T) {
	e := newMatchEntry("m1")
	e.AddTransport(&TransportHandle{ID: "t1", Match: "m1"})

	if !e.BeginTransportClose("t1") {
		t.Fatal("first claim failed")
	}
	if e.BeginTransportClose("t1") {
		t.Fatal("second claim succeeded")
	}
	if _, ok := e.LiveTransport("t1"); ok {
		t.Fatal("claimed transport still reported live")
	}
	if e.SetTransportState("t1", domain.TransportConnected) {
		t.Fatal("state transition allowed on a claimed transport")
	}
}

func TestOwnershipSnapshots(t *testing.T) {
	e := newMatchEntry("m1")
	e.AddTransport(&TransportHandle{ID: "t1"})
	e.AddTransport(&TransportHandle{ID: "t2"})
	e.AddProducer(&ProducerHandle{ID: "p1", Transport: "t1"})
	e.AddProducer(&ProducerHandle{ID: "p2", Transport: "t2"})
	e.AddConsumer(&ConsumerHandle{ID: "c1", Transport: "t1", Producer: "p2"})
	e.AddConsumer(&ConsumerHandle{ID: "c2", Transport: "t2", Producer: "p2"})

	if got := e.ProducersOnTransport("t1"); len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("ProducersOnTransport(t1) = %v", got)
	}
	if got := e.ConsumersOnTransport("t1"); len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("ConsumersOnTransport(t1) = %v", got)
	}
	if got := e.ConsumersOf("p2"); len(got) != 2 {
		t.Fatalf("ConsumersOf(p2) len = %d, want 2", len(got))
	}
	if e.Empty() {
		t.Fatal("entry reported empty with live resources")
	}
}
