package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSettlePreservesOrder(t *testing.T) {
	t.Parallel()

	outcomes := Settle(context.Background(),
		Task{Name: "slow", Run: func(ctx context.Context) (any, error) {
			time.Sleep(30 * time.Millisecond)
			return "slow-value", nil
		}},
		Task{Name: "fast", Run: func(ctx context.Context) (any, error) {
			return "fast-value", nil
		}},
	)

	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	if outcomes[0].Name != "slow" || outcomes[1].Name != "fast" {
		t.Errorf("order not preserved: %q, %q", outcomes[0].Name, outcomes[1].Name)
	}
	if outcomes[0].Value != "slow-value" {
		t.Errorf("slow value = %v", outcomes[0].Value)
	}
}

func TestSettleFailureDoesNotCancelSiblings(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	outcomes := Settle(context.Background(),
		Task{Name: "bad", Run: func(ctx context.Context) (any, error) {
			return nil, boom
		}},
		Task{Name: "good", Run: func(ctx context.Context) (any, error) {
			// Give the failing sibling a head start; we must still run to
			// completion.
			time.Sleep(20 * time.Millisecond)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return 42, nil
		}},
	)

	if !errors.Is(outcomes[0].Err, boom) {
		t.Errorf("bad outcome err = %v", outcomes[0].Err)
	}
	if outcomes[1].Err != nil {
		t.Errorf("sibling was cancelled: %v", outcomes[1].Err)
	}
	if outcomes[1].Value != 42 {
		t.Errorf("good value = %v", outcomes[1].Value)
	}
}

func TestSettleNoTasks(t *testing.T) {
	t.Parallel()

	if got := Settle(context.Background()); len(got) != 0 {
		t.Errorf("Settle() = %v", got)
	}
}
