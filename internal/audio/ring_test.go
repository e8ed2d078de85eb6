package audio

import "testing"

func TestRingPushPop(t *testing.T) {
	ring, err := NewRing(8)
	if err != nil {
		t.Fatalf("failed to create ring: %v", err)
	}

	if n := ring.Push([]int16{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("expected 5 samples pushed, got %d", n)
	}

	if ring.Len() != 5 {
		t.Errorf("expected length 5, got %d", ring.Len())
	}

	dst := make([]int16, 5)
	if err := ring.PopExact(dst); err != nil {
		t.Fatalf("pop failed: %v", err)
	}

	for i, want := range []int16{1, 2, 3, 4, 5} {
		if dst[i] != want {
			t.Errorf("dst[%d]: expected %d, got %d", i, want, dst[i])
		}
	}

	if ring.Len() != 0 {
		t.Errorf("expected empty ring, got length %d", ring.Len())
	}
}

func TestRingShortPushReportsDeliveredCount(t *testing.T) {
	ring, err := NewRing(4)
	if err != nil {
		t.Fatalf("failed to create ring: %v", err)
	}

	if n := ring.Push([]int16{1, 2, 3}); n != 3 {
		t.Fatalf("expected 3 pushed, got %d", n)
	}

	// Only one slot left; the push is partial and reports what fit.
	if n := ring.Push([]int16{4, 5, 6}); n != 1 {
		t.Errorf("expected partial push of 1, got %d", n)
	}

	// Full ring accepts nothing.
	if n := ring.Push([]int16{7}); n != 0 {
		t.Errorf("expected 0 pushed into full ring, got %d", n)
	}

	dst := make([]int16, 4)
	if err := ring.PopExact(dst); err != nil {
		t.Fatalf("pop failed: %v", err)
	}
	if dst[3] != 4 {
		t.Errorf("expected partial push to deliver sample 4, got %d", dst[3])
	}
}

func TestRingPopExactAllOrNothing(t *testing.T) {
	ring, err := NewRing(8)
	if err != nil {
		t.Fatalf("failed to create ring: %v", err)
	}

	ring.Push([]int16{1, 2, 3})

	dst := make([]int16, 5)
	if err := ring.PopExact(dst); err == nil {
		t.Fatal("expected underflow error popping 5 from 3")
	}

	// The failed pop must not have consumed anything.
	if ring.Len() != 3 {
		t.Errorf("expected 3 samples still buffered, got %d", ring.Len())
	}

	if err := ring.PopExact(dst[:3]); err != nil {
		t.Errorf("exact pop of available samples should succeed: %v", err)
	}
}

func TestRingWrapAround(t *testing.T) {
	ring, err := NewRing(6)
	if err != nil {
		t.Fatalf("failed to create ring: %v", err)
	}

	// Advance positions so subsequent pushes wrap the backing slice.
	var next int16
	dst := make([]int16, 4)
	for round := 0; round < 100; round++ {
		chunk := make([]int16, 4)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		if n := ring.Push(chunk); n != 4 {
			t.Fatalf("round %d: expected full push, got %d", round, n)
		}
		if err := ring.PopExact(dst); err != nil {
			t.Fatalf("round %d: pop failed: %v", round, err)
		}
		for i, s := range dst {
			if s != chunk[i] {
				t.Fatalf("round %d: dst[%d] = %d, want %d", round, i, s, chunk[i])
			}
		}
	}
}

func TestRingSkip(t *testing.T) {
	ring, err := NewRing(8)
	if err != nil {
		t.Fatalf("failed to create ring: %v", err)
	}

	ring.Push([]int16{1, 2, 3, 4})

	if err := ring.Skip(10); err == nil {
		t.Error("expected underflow error skipping more than buffered")
	}

	if err := ring.Skip(2); err != nil {
		t.Fatalf("skip failed: %v", err)
	}

	dst := make([]int16, 2)
	if err := ring.PopExact(dst); err != nil {
		t.Fatalf("pop failed: %v", err)
	}
	if dst[0] != 3 || dst[1] != 4 {
		t.Errorf("expected samples 3,4 after skip, got %d,%d", dst[0], dst[1])
	}
}

func TestRingConcurrentProducerConsumer(t *testing.T) {
	ring, err := NewRing(1024)
	if err != nil {
		t.Fatalf("failed to create ring: %v", err)
	}

	const total = 100000
	done := make(chan struct{})

	go func() {
		defer close(done)
		var next int16
		sent := 0
		for sent < total {
			chunk := make([]int16, 64)
			for i := range chunk {
				chunk[i] = next
				next++
			}
			for pushed := 0; pushed < len(chunk); {
				n := ring.Push(chunk[pushed:])
				pushed += n
			}
			sent += len(chunk)
		}
	}()

	var expect int16
	received := 0
	dst := make([]int16, 64)
	for received < total {
		if ring.Len() < len(dst) {
			continue
		}
		if err := ring.PopExact(dst); err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		for _, s := range dst {
			if s != expect {
				t.Fatalf("sample %d: got %d, want %d", received, s, expect)
			}
			expect++
			received++
		}
	}
	<-done
}
